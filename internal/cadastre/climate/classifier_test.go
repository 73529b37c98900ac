package climate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catastro/internal/cadastre/models"
)

func TestDefaultTable(t *testing.T) {
	assert.Equal(t, 52, DefaultTable().Len(), "50 provinces plus Ceuta and Melilla")
}

func TestParseTable(t *testing.T) {
	t.Run("rejects unknown zone codes", func(t *testing.T) {
		_, err := ParseTable([]byte("provinces:\n  - name: MADRID\n    zone: Z9\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid climate zone")
	})

	t.Run("rejects aliases claimed twice", func(t *testing.T) {
		data := "provinces:\n  - name: MADRID\n    zone: D3\n    aliases: [X]\n  - name: TOLEDO\n    zone: C4\n    aliases: [X]\n"
		_, err := ParseTable([]byte(data))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "claimed by")
	})

	t.Run("rejects empty tables", func(t *testing.T) {
		_, err := ParseTable([]byte("provinces: []\n"))
		assert.Error(t, err)
	})
}

func TestClassify(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		province string
		want     string
	}{
		{"exact canonical", "MADRID", "D3"},
		{"lower case", "barcelona", "C2"},
		{"accented canonical", "ÁVILA", "E1"},
		{"unaccented canonical", "AVILA", "E1"},
		{"registry parenthesized suffix", "MADRID (MADRID)", "D3"},
		{"partial registry string", "PROV. SEVILLA", "B4"},
		{"truncated input", "SALAMAN", "D2"},
		{"unknown", "ATLANTIS", NotAvailable},
		{"empty", "", NotAvailable},
		{"fragment too short for reverse match", "LA", NotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.province))
		})
	}
}

func TestClassifyAlavaAliases(t *testing.T) {
	c := New(nil)
	canonical := c.Classify("ARABA/ÁLAVA")
	require.NotEqual(t, NotAvailable, canonical)

	for _, alias := range []string{"Alava", "Álava", "Araba", "araba/alava"} {
		assert.Equal(t, canonical, c.Classify(alias), alias)
	}
}

func TestClassifyAt(t *testing.T) {
	c := New(nil)

	t.Run("empty province without coordinates is not available", func(t *testing.T) {
		assert.Equal(t, NotAvailable, c.ClassifyAt("", nil))
	})

	t.Run("empty province with coordinates uses the regional heuristic", func(t *testing.T) {
		zone := c.ClassifyAt("", &models.GeoCoordinates{Lat: 43.0, Lng: -8.0})
		assert.NotEqual(t, NotAvailable, zone)
		assert.Equal(t, "C1", zone)
	})

	t.Run("known province wins over coordinates", func(t *testing.T) {
		zone := c.ClassifyAt("MÁLAGA", &models.GeoCoordinates{Lat: 43.0, Lng: -8.0})
		assert.Equal(t, "A3", zone)
	})

	t.Run("zero coordinates count as missing", func(t *testing.T) {
		assert.Equal(t, NotAvailable, c.ClassifyAt("", &models.GeoCoordinates{}))
	})
}

func TestByRegion(t *testing.T) {
	tests := []struct {
		name   string
		coords models.GeoCoordinates
		want   string
	}{
		{"galicia", models.GeoCoordinates{Lat: 43.0, Lng: -8.0}, "C1"},
		{"catalonia north", models.GeoCoordinates{Lat: 42.2, Lng: 2.5}, "C2"},
		{"madrid", models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038}, "D3"},
		{"valencia", models.GeoCoordinates{Lat: 39.47, Lng: -0.37}, "B3"},
		{"palma", models.GeoCoordinates{Lat: 39.57, Lng: 2.65}, "B3"},
		{"sevilla", models.GeoCoordinates{Lat: 37.39, Lng: -5.98}, "B4"},
		{"malaga", models.GeoCoordinates{Lat: 36.72, Lng: -4.42}, "A3"},
		{"almeria", models.GeoCoordinates{Lat: 36.84, Lng: -2.46}, "A4"},
		{"outside territory", models.GeoCoordinates{Lat: 48.85, Lng: 2.35}, NotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ByRegion(tt.coords))
		})
	}
}

func TestCanonical(t *testing.T) {
	c := New(nil)

	name, ok := c.Canonical("Vizcaya")
	assert.True(t, ok)
	assert.Equal(t, "BIZKAIA", name)

	name, ok = c.Canonical("álava")
	assert.True(t, ok)
	assert.Equal(t, "ARABA/ÁLAVA", name)

	_, ok = c.Canonical("Mordor")
	assert.False(t, ok)
}
