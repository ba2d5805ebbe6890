package financials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetradar/internal/service"
)

type fakeRegistry struct {
	filings    []service.AccountsFiling
	filingsErr error
	content    []byte
	mime       string
	contentErr error
	fetchedDoc string
}

func (f *fakeRegistry) AccountsFilings(_ context.Context, _ string) ([]service.AccountsFiling, error) {
	return f.filings, f.filingsErr
}

func (f *fakeRegistry) DocumentContent(_ context.Context, documentID string) ([]byte, string, error) {
	f.fetchedDoc = documentID
	return f.content, f.mime, f.contentErr
}

func filingWithDoc(id string) []service.AccountsFiling {
	return []service.AccountsFiling{{
		Date:             "2024-09-01",
		DocumentMetadata: "https://docs.example/document/" + id,
	}}
}

func TestFinancials(t *testing.T) {
	ctx := context.Background()

	t.Run("single recognized tag yields one measure", func(t *testing.T) {
		reg := &fakeRegistry{
			filings: filingWithDoc("doc1"),
			content: []byte(`<html><body><Revenue>250000</Revenue></body></html>`),
			mime:    "application/xhtml+xml",
		}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		assert.Equal(t, "doc1", reg.fetchedDoc)
		require.NotNil(t, fin.Turnover)
		assert.Equal(t, 250000.0, *fin.Turnover)
		assert.Nil(t, fin.Profit)
		assert.Nil(t, fin.Employees)
	})

	t.Run("thousands separators are stripped", func(t *testing.T) {
		reg := &fakeRegistry{
			filings: filingWithDoc("doc1"),
			content: []byte(`<x:Turnover xmlns:x="urn:test">1,250,000</x:Turnover>`),
			mime:    "text/html",
		}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		require.NotNil(t, fin.Turnover)
		assert.Equal(t, 1250000.0, *fin.Turnover)
	})

	t.Run("garbage text skips to the next candidate tag", func(t *testing.T) {
		reg := &fakeRegistry{
			filings: filingWithDoc("doc1"),
			content: []byte(`<html><body>
				<Turnover>see note 3</Turnover>
				<Revenue>98,500</Revenue>
				<ProfitLoss>n/a</ProfitLoss>
			</body></html>`),
			mime: "text/html",
		}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		require.NotNil(t, fin.Turnover)
		assert.Equal(t, 98500.0, *fin.Turnover)
		assert.Nil(t, fin.Profit)
	})

	t.Run("all three measures extracted", func(t *testing.T) {
		reg := &fakeRegistry{
			filings: filingWithDoc("doc1"),
			content: []byte(`<html><body>
				<ix:nonFraction name="x"><Turnover>500000</Turnover></ix:nonFraction>
				<ProfitLoss>-12,000</ProfitLoss>
				<AverageNumberEmployeesDuringPeriod>8</AverageNumberEmployeesDuringPeriod>
			</body></html>`),
			mime: "application/xhtml+xml",
		}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		require.NotNil(t, fin.Turnover)
		require.NotNil(t, fin.Profit)
		require.NotNil(t, fin.Employees)
		assert.Equal(t, 500000.0, *fin.Turnover)
		assert.Equal(t, -12000.0, *fin.Profit)
		assert.Equal(t, 8.0, *fin.Employees)
	})

	t.Run("pdf-only representation yields nothing", func(t *testing.T) {
		reg := &fakeRegistry{
			filings: filingWithDoc("doc1"),
			content: []byte("%PDF-1.7 ..."),
			mime:    "application/pdf",
		}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		assert.Nil(t, fin.Turnover)
		assert.Nil(t, fin.Profit)
		assert.Nil(t, fin.Employees)
	})

	t.Run("no filing with a document link yields nothing", func(t *testing.T) {
		reg := &fakeRegistry{
			filings: []service.AccountsFiling{{Date: "2024-09-01"}},
		}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		assert.Empty(t, reg.fetchedDoc)
		assert.Nil(t, fin.Turnover)
	})

	t.Run("filing history failure degrades to nothing", func(t *testing.T) {
		reg := &fakeRegistry{filingsErr: errors.New("boom")}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		assert.Nil(t, fin.Turnover)
	})

	t.Run("document fetch failure degrades to nothing", func(t *testing.T) {
		reg := &fakeRegistry{
			filings:    filingWithDoc("doc1"),
			contentErr: errors.New("boom"),
		}
		fin, err := NewExtractor(reg).Financials(ctx, "01234567")
		require.NoError(t, err)
		assert.Nil(t, fin.Turnover)
	})
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"plain integer", "250000", 250000, true},
		{"thousands separators", "1,250,000", 1250000, true},
		{"negative", "-12,000", -12000, true},
		{"decimal", "8.5", 8.5, true},
		{"whitespace", "  42 ", 42, true},
		{"empty", "", 0, false},
		{"prose", "see note 3", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
