package entity

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Outlet is a stable tag identifying a participating press source.
type Outlet string

// The fixed outlet enumeration. Adding or removing an outlet is a registry
// edit only; no pipeline code depends on specific tags.
const (
	OutletABC             Outlet = "abc"
	OutletAntena3         Outlet = "antena3"
	OutletCOPE            Outlet = "cope"
	OutletDiarioRed       Outlet = "diarioRed"
	OutletElDiario        Outlet = "elDiario"
	OutletElEconomista    Outlet = "elEconomista"
	OutletElMundo         Outlet = "elMundo"
	OutletElPais          Outlet = "elPais"
	OutletElPeriodico     Outlet = "elPeriodico"
	OutletElSalto         Outlet = "elSalto"
	OutletEsDiario        Outlet = "esDiario"
	OutletExpansion       Outlet = "expansion"
	OutletLaSexta         Outlet = "laSexta"
	OutletLaVanguardia    Outlet = "laVanguardia"
	OutletLibertadDigital Outlet = "libertadDigital"
	OutletRTVE            Outlet = "rtve"
)

// OutletInfo carries the registry entry for one outlet.
type OutletInfo struct {
	DisplayName string `yaml:"display_name"`
	FeedURL     string `yaml:"feed_url"`
}

// defaultRegistry maps every outlet tag to its display name and feed URL.
var defaultRegistry = map[Outlet]OutletInfo{
	OutletABC:             {DisplayName: "ABC", FeedURL: "https://www.abc.es/rss/2.0/portada/"},
	OutletAntena3:         {DisplayName: "Antena 3", FeedURL: "https://www.antena3.com/noticias/rss/4013050.xml"},
	OutletCOPE:            {DisplayName: "COPE", FeedURL: "https://www.cope.es/api/es/news/rss.xml"},
	OutletDiarioRed:       {DisplayName: "Diario Red", FeedURL: "https://www.diario-red.com/rss"},
	OutletElDiario:        {DisplayName: "elDiario.es", FeedURL: "https://www.eldiario.es/rss/"},
	OutletElEconomista:    {DisplayName: "El Economista", FeedURL: "https://www.eleconomista.es/rss/rss-seleccion-ee.php"},
	OutletElMundo:         {DisplayName: "El Mundo", FeedURL: "https://e00-elmundo.uecdn.es/elmundo/rss/portada.xml"},
	OutletElPais:          {DisplayName: "El País", FeedURL: "https://feeds.elpais.com/mrss-s/pages/ep/site/elpais.com/portada"},
	OutletElPeriodico:     {DisplayName: "El Periódico", FeedURL: "https://www.elperiodico.com/es/rss/rss_portada.xml"},
	OutletElSalto:         {DisplayName: "El Salto", FeedURL: "https://www.elsaltodiario.com/general/feed"},
	OutletEsDiario:        {DisplayName: "ESdiario", FeedURL: "https://www.esdiario.com/rss/home.xml"},
	OutletExpansion:       {DisplayName: "Expansión", FeedURL: "https://e00-expansion.uecdn.es/rss/portada.xml"},
	OutletLaSexta:         {DisplayName: "laSexta", FeedURL: "https://www.lasexta.com/rss/351410.xml"},
	OutletLaVanguardia:    {DisplayName: "La Vanguardia", FeedURL: "https://www.lavanguardia.com/rss/home.xml"},
	OutletLibertadDigital: {DisplayName: "Libertad Digital", FeedURL: "https://feeds2.feedburner.com/libertaddigital/portada"},
	OutletRTVE:            {DisplayName: "RTVE", FeedURL: "https://api2.rtve.es/rss/temas_noticias.xml"},
}

// Valid reports whether the tag belongs to the registry.
func (o Outlet) Valid() bool {
	_, ok := defaultRegistry[o]
	return ok
}

// DisplayName returns the human-readable outlet name, or the raw tag when
// the outlet is not registered.
func (o Outlet) DisplayName() string {
	if info, ok := defaultRegistry[o]; ok {
		return info.DisplayName
	}
	return string(o)
}

// Registry returns the outlet registry. When path is non-empty the YAML file
// at path replaces the built-in table; entries must map outlet tags to
// {display_name, feed_url}.
func Registry(path string) (map[Outlet]OutletInfo, error) {
	if path == "" {
		out := make(map[Outlet]OutletInfo, len(defaultRegistry))
		for tag, info := range defaultRegistry {
			out[tag] = info
		}
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Registry: read %s: %w", path, err)
	}
	parsed := make(map[Outlet]OutletInfo)
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("Registry: parse %s: %w", path, err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("Registry: %s contains no outlets", path)
	}
	for tag, info := range parsed {
		if info.FeedURL == "" {
			return nil, fmt.Errorf("Registry: outlet %s has no feed_url", tag)
		}
	}
	return parsed, nil
}

// OutletTags returns the registry tags in deterministic order.
func OutletTags(registry map[Outlet]OutletInfo) []Outlet {
	tags := make([]Outlet, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
