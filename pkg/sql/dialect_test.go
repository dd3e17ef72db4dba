package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialects(t *testing.T) {
	assert.Equal(t, "?", DuckDB.Placeholder(3))
	assert.Equal(t, "$3", Postgres.Placeholder(3))
	assert.Equal(t, "@p3", SQLServer.Placeholder(3))

	assert.Equal(t, `"we""ird"`, DuckDB.QuoteIdentifier(`we"ird`))
	assert.Equal(t, `"casa"`, Postgres.QuoteIdentifier("casa"))
	assert.Equal(t, "[we]]ird]", SQLServer.QuoteIdentifier("we]ird"))

	assert.Equal(t, "CAST(x AS DOUBLE PRECISION)", Postgres.NumericCast("x"))
	assert.Equal(t, "TRY_CAST(x AS FLOAT)", SQLServer.NumericCast("x"))

	assert.Equal(t, "", DuckDB.Paginate(0, 0))
	assert.Equal(t, "OFFSET 10", DuckDB.Paginate(0, 10))
	assert.Equal(t, "OFFSET 10 ROWS", SQLServer.Paginate(0, 10))
	assert.Equal(t, "OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY", SQLServer.Paginate(5, -3))
}

func TestSplitQualified(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"test_cso_g.casa.vw_a_cgenova", []string{"test_cso_g", "casa", "vw_a_cgenova"}},
		{` "casa" . "vw" `, []string{"casa", "vw"}},
		{"listings", []string{"listings"}},
		{"a..b.", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitQualified(tt.input), tt.input)
	}
}

func TestQuoteQualified(t *testing.T) {
	got, err := QuoteQualified(DuckDB, "test_cso_g.casa.vw_a_cgenova")
	assert.NoError(t, err)
	assert.Equal(t, `"test_cso_g"."casa"."vw_a_cgenova"`, got)

	_, err = QuoteQualified(DuckDB, "  ")
	assert.ErrorIs(t, err, ErrEmptyIdentifier)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "vw_a_cgenova-filtered.csv", ExportFilename("test_cso_g.casa.vw_a_cgenova"))
	assert.Equal(t, "listings-filtered.csv", ExportFilename("listings"))
	assert.Equal(t, "listings-filtered.csv", ExportFilename(""))
	assert.Equal(t, "vw-filtered.csv", LastSegment("a.vw")+"-filtered.csv")
}
