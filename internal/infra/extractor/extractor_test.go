package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// httptest binds to loopback.
	cfg.DenyPrivateIPs = false
	return cfg
}

const articleHTML = `<!DOCTYPE html>
<html lang="es">
<head><title>Noticia de prueba</title></head>
<body>
<header>Menú de navegación</header>
<article>
<h1>El gobierno aprueba la nueva ley</h1>
<p>El consejo de ministros ha aprobado este martes la nueva normativa que regula
el sector energético. La medida, que entrará en vigor el próximo mes, afecta a
miles de empresas en todo el país y ha generado reacciones encontradas entre
los agentes sociales.</p>
<p>Fuentes del ministerio señalan que la norma busca equilibrar la transición
energética con la competitividad industrial. Los sindicatos, por su parte,
reclaman medidas de acompañamiento para los trabajadores de los sectores más
afectados por el cambio regulatorio anunciado esta semana.</p>
</article>
<footer>Aviso legal</footer>
</body>
</html>`

func TestExtract_ReturnsArticleText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "NeutralNews/1.0")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	e := New(testConfig())
	text, err := e.Extract(context.Background(), server.URL+"/noticia")
	require.NoError(t, err)
	assert.Contains(t, text, "consejo de ministros")
	assert.NotContains(t, text, "<p>")
}

func TestExtract_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := New(testConfig())
	_, err := e.Extract(context.Background(), server.URL+"/desaparecida")
	assert.Error(t, err)
}

func TestExtract_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>" + strings.Repeat("a", 4096) + "</body></html>"))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 2048
	e := New(cfg)

	_, err := e.Extract(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestExtract_InvalidScheme(t *testing.T) {
	e := New(testConfig())
	_, err := e.Extract(context.Background(), "ftp://example.com/file")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestExtract_PrivateIPBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	cfg := DefaultConfig() // DenyPrivateIPs true
	e := New(cfg)

	_, err := e.Extract(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrPrivateIP)
}

func TestExtract_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	e := New(cfg)

	_, err := e.Extract(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout) || strings.Contains(err.Error(), "deadline"),
		"expected timeout error, got: %v", err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"negative min words", func(c *Config) { c.MinWords = -1 }, true},
		{"excess parallelism", func(c *Config) { c.Parallelism = 51 }, true},
		{"tiny body size", func(c *Config) { c.MaxBodySize = 100 }, true},
		{"excess redirects", func(c *Config) { c.MaxRedirects = 11 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SCRAPE_TIMEOUT", "5s")
	t.Setenv("SCRAPE_MIN_WORDS", "50")
	t.Setenv("SCRAPE_PARALLELISM", "8")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 50, cfg.MinWords)
	assert.Equal(t, 8, cfg.Parallelism)
	// Unset values keep defaults.
	assert.True(t, cfg.DenyPrivateIPs)
}

func TestLoadConfigFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("SCRAPE_TIMEOUT", "pronto")
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}
