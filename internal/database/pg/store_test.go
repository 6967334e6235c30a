package pg

import (
	"context"
	"testing"

	"mdining/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_InvalidDSN(t *testing.T) {
	logger := zerolog.Nop()
	_, err := Connect(context.Background(), "postgres://%zz", &logger)
	assert.ErrorContains(t, err, "parse dsn")
}

func TestListVenuesQuery(t *testing.T) {
	q, args := listVenuesQuery("")
	assert.NotContains(t, q, "WHERE")
	assert.Empty(t, args)

	q, args = listVenuesQuery(models.VenueDiningHall)
	assert.Contains(t, q, "WHERE type = $1")
	assert.Equal(t, []any{models.VenueDiningHall}, args)
}

func TestDecodeMacros(t *testing.T) {
	m, err := decodeMacros(nil)
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = decodeMacros([]byte("null"))
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = decodeMacros([]byte(`{"Calories":"250","Protein":12,"Unknown":3}`))
	require.NoError(t, err)
	assert.Equal(t, models.Macros{models.Calories: 250, models.Protein: 12}, m)

	_, err = decodeMacros([]byte(`[1,2]`))
	assert.Error(t, err)
}
