package utils_test

import (
	"testing"

	"github.com/jrsteele09/warranty-portal/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueOr(t *testing.T) {
	require.Equal(t, "fallback", utils.ValueOr[string](nil, "fallback"))
	require.Equal(t, "", utils.ValueOr(utils.Ptr(""), "fallback"))
	require.Equal(t, 7, utils.ValueOr(utils.Ptr(7), 1))
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", utils.FirstNonEmpty("", "b", "c"))
	require.Equal(t, "", utils.FirstNonEmpty("", ""))
	require.Equal(t, "", utils.FirstNonEmpty())
}

func TestRemarshal(t *testing.T) {
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, utils.Remarshal(map[string]any{"name": "acme", "count": 3.0}, &out))
	require.Equal(t, "acme", out.Name)
	require.Equal(t, 3, out.Count)

	require.Error(t, utils.Remarshal(map[string]any{"count": "three"}, &out))
}
