package brickarchitect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/testutil"
)

func TestParseYears(t *testing.T) {
	tests := []struct {
		in         string
		begin, end int
	}{
		{"1958-2024", 1958, 2024},
		{" 1990 - 2001 ", 1990, 2001},
		{"", 0, 0},
		{"1958", 0, 0},
		{"abc-def", 0, 0},
		{"1958-", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			begin, end := ParseYears(tt.in)
			assert.Equal(t, tt.begin, begin)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 12345, ParseCount("12,345"))
	assert.Equal(t, 1234567, ParseCount(" 1,234,567 "))
	assert.Equal(t, 7, ParseCount("7"))
	assert.Equal(t, 0, ParseCount(""))
	assert.Equal(t, 0, ParseCount("n/a"))
}

func TestParseTotalYears(t *testing.T) {
	assert.Equal(t, 6, ParseTotalYears("6 years"))
	assert.Equal(t, 67, ParseTotalYears("67"))
	assert.Equal(t, 0, ParseTotalYears(""))
	assert.Equal(t, 0, ParseTotalYears("many years"))
}

func TestParseRows(t *testing.T) {
	page := testutil.CatalogHTML(
		testutil.CatalogRow{
			Name: "Brick 2 x 4", ID: "3001", Rank: "1", Pieces: "1,234,567", Sets: "12,345",
			Colors: "42", Years: "1958-2024", TotalYears: "67 years",
		},
		testutil.CatalogRow{Name: "Nameless id missing"},
		testutil.CatalogRow{ID: "9999"},
		testutil.CatalogRow{Name: "Plate 1 x 1", ID: "3024"},
	)

	rows, err := ParseRows(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, parts.RawRow{
		Name: "Brick 2 x 4", ID: "3001", OverallRank: 1, NumPieces: 1234567, NumSets: 12345,
		NumColors: 42, BeginYear: 1958, EndYear: 2024, TotalYears: 67,
	}, rows[0])
	assert.Equal(t, parts.RawRow{Name: "Plate 1 x 1", ID: "3024"}, rows[1])
}

func TestParseRows_NoRows(t *testing.T) {
	rows, err := ParseRows(strings.NewReader("<html><body><p>No parts</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_FetchPage(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	srv.Handle("/parts?page=2", testutil.HTML(testutil.CatalogHTML(
		testutil.CatalogRow{Name: "Brick 1 x 2", ID: "3004", Rank: "3"},
	)))

	client := NewClient(srv.URL+"/parts", WithUserAgent("brickmass-test"))
	rows, err := client.FetchPage(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "3004", rows[0].ID)
	assert.Equal(t, 3, rows[0].OverallRank)
	assert.Equal(t, "brickmass-test", srv.LastRequest().Header.Get("User-Agent"))
}

func TestClient_FetchPageErrors(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	srv.Handle("/parts?page=1", testutil.Fixture{Status: http.StatusInternalServerError, Body: "boom"})

	client := NewClient(srv.URL + "/parts")

	_, err := client.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	// unknown page is a 404 from the fixture server
	_, err = client.FetchPage(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_FetchPageCancelled(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	srv.Handle("/parts?page=1", testutil.HTML(testutil.CatalogHTML()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL+"/parts").FetchPage(ctx, 1)
	assert.Error(t, err)
}

func TestParseRows_EmptyNameKept(t *testing.T) {
	page := `<div class="parts_results tablestyle mostcommon"><div class="tbody">
		<div class="tr"><span class="partname"> </span><span class="partnum">3070b</span></div>
		<div class="tr"><span class="partname">Id is blank</span><span class="partnum"> </span></div>
	</div></div>`

	rows, err := ParseRows(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, parts.RawRow{ID: "3070b"}, rows[0])
}

func TestClient_FetchPageTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL+"/parts",
		WithRestyClient(resty.New().SetTimeout(50*time.Millisecond)),
		WithUserAgent("brickmass-test"),
	)

	start := time.Now()
	_, err := client.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
