package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleDocument is a small catalog in the persisted format, indented the
// way EncodeCatalog writes it.
const sampleDocument = `{
  "options": {
    "design": {
      "order": 2,
      "options": {
        "custom_design": {
          "name": "Custom design",
          "type": "boolean",
          "order": 1
        },
        "extra_pages": {
          "name": "Extra pages",
          "type": "integer",
          "order": 2,
          "min": 0,
          "max": 10
        }
      }
    },
    "features": {
      "order": 1,
      "options": {
        "blog": {
          "name": "Blog <beta>",
          "type": "boolean",
          "order": 1
        }
      }
    }
  },
  "products": {
    "zeta": {
      "name": "Zeta",
      "theme_cost": 500000,
      "planning_cost": 300000,
      "hosting_cost": 100000,
      "discount": 50000,
      "options": {
        "custom_design": {
          "enabled": true,
          "default": false,
          "price": 20000
        },
        "extra_pages": {
          "enabled": true,
          "default": 2,
          "price_per_unit": 5000
        },
        "blog": {
          "enabled": false,
          "default": false,
          "price": 0
        }
      }
    },
    "alpha": {
      "name": "アルファ",
      "description": "Small & simple",
      "theme_cost": 100,
      "planning_cost": 0,
      "hosting_cost": 0,
      "discount": 0,
      "options": {}
    }
  }
}
`

func mustDecode(t *testing.T, doc string) *Catalog {
	t.Helper()
	c, err := DecodeCatalog([]byte(doc))
	require.NoError(t, err)
	return c
}
