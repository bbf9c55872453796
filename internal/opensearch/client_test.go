package opensearch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
)

const descriptionXML = `<?xml version="1.0" encoding="UTF-8"?>
<OpenSearchDescription xmlns="http://a9.com/-/spec/opensearch/1.1/"
    xmlns:param="http://a9.com/-/spec/opensearch/extensions/parameters/1.0/"
    xmlns:time="http://a9.com/-/opensearch/extensions/time/1.0/">
  <ShortName>CEDA</ShortName>
  <Url rel="results" type="application/atom+xml" template="https://x/opensearch/request?httpAccept=application/atom%2Bxml"/>
  <Url rel="results" type="application/geo+json" template="https://x/opensearch/request?httpAccept=application/geo%2Bjson&amp;parentIdentifier={geo:uid}">
    <param:Parameter name="ecv" value="{ceda:ecv}">
      <param:Option value="SST" label="Sea Surface Temperature (1204)"/>
      <param:Option value="ICESHEETS" label="Ice Sheets (12)"/>
    </param:Parameter>
    <param:Parameter name="drsId" value="{ceda:drsId}">
      <param:Option value="esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.3-0.r1" label="esacci.SST (10)"/>
      <param:Option value="esacci.SST.day.L3C.SSTskin.AVHRR-3.NOAA-19.AVHRR19_G.3-0.r1" label="esacci.SST (5)"/>
    </param:Parameter>
    <param:Parameter name="fileFormat" value="{ceda:fileFormat}">
      <param:Option value=".nc" label="NetCDF"/>
    </param:Parameter>
    <param:Parameter name="startDate" value="{time:start}" minInclusive="1980-01-01T00:00:00Z"/>
    <param:Parameter name="endDate" value="{time:end}" maxInclusive="2022-12-31T23:59:59Z"/>
  </Url>
</OpenSearchDescription>`

const gmlDescriptionXML = `<?xml version="1.0" encoding="UTF-8"?>
<OpenSearchDescription xmlns="http://a9.com/-/spec/opensearch/1.1/"
    xmlns:gml="http://www.opengis.net/gml/3.2">
  <Url rel="results" type="application/geo+json" template="https://x"/>
  <gml:TimePeriod gml:id="tp">
    <gml:beginPosition>2002-06-01T00:00:00</gml:beginPosition>
    <gml:endPosition>2011-10-31T23:59:59</gml:endPosition>
  </gml:TimePeriod>
</OpenSearchDescription>`

func newTestClient(url string) *Client {
	c := NewClient(config.OpenSearchConfig{BaseURL: url, Retries: 3, Backoff: 4}, nil)
	c.initialInterval = time.Millisecond
	return c.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseDescription(t *testing.T) {
	d, err := ParseDescription([]byte(descriptionXML))
	require.NoError(t, err)

	assert.Contains(t, d.Template, "geo%2Bjson")
	assert.Equal(t, "1980-01-01", d.Start)
	assert.Equal(t, "2022-12-31", d.End)
	assert.Len(t, d.DRSIDs(), 2)
	assert.Equal(t, []Option{{Value: ".nc", Label: "NetCDF"}}, d.FileFormats())
	assert.Equal(t, map[string][]string{
		"SST":       {"Sea Surface Temperature"},
		"ICESHEETS": {"Antarctic Ice Sheet", "Greenland Ice Sheet"},
	}, d.ECVs())
	assert.Empty(t, d.Values("platform"))
}

func TestParseDescription_TimePeriod(t *testing.T) {
	d, err := ParseDescription([]byte(gmlDescriptionXML))
	require.NoError(t, err)
	assert.Equal(t, "2002-06-01", d.Start)
	assert.Equal(t, "2011-10-31", d.End)
}

func TestParseDescription_Errors(t *testing.T) {
	_, err := ParseDescription([]byte(`<OpenSearchDescription xmlns="http://a9.com/-/spec/opensearch/1.1/"><Url rel="results" type="text/html"/></OpenSearchDescription>`))
	assert.ErrorIs(t, err, ErrNoResultsURL)

	_, err = ParseDescription([]byte(`not xml`))
	assert.Error(t, err)
}

func TestClient_Description(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/opensearch/description.xml", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("parentIdentifier"))
		_, _ = w.Write([]byte(descriptionXML))
	}))
	defer server.Close()

	d, err := newTestClient(server.URL).Description(context.Background(), "abc", "")
	require.NoError(t, err)
	assert.Equal(t, "1980-01-01", d.Start)
}

func TestClient_RetriesOn500(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).Get(context.Background(), server.URL+"/opensearch/request")
	require.NoError(t, err)
	assert.Equal(t, `{"features":[]}`, string(body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Get(context.Background(), server.URL)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_NoRetryOnOtherStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Get(context.Background(), server.URL)
	assert.True(t, IsNotFound(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_FeatureDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/opensearch/request", r.URL.Path)
		assert.Equal(t, "uuid1", q.Get("parentIdentifier"))
		assert.Equal(t, "esacci.SST.x", q.Get("drsId"))
		assert.Equal(t, "application/geo+json", q.Get("httpAccept"))
		assert.Equal(t, "20", q.Get("maximumRecords"))
		_, _ = w.Write([]byte(`{"totalResults": 3, "features": [
			{"properties": {"date": "2003-01-01T00:00:00+00:00/2003-01-31T23:59:59+00:00"}},
			{"properties": {}},
			{"properties": {"date": "2001-01-01T00:00:00/2001-12-31T00:00:00"}}
		]}`))
	}))
	defer server.Close()

	dates, err := newTestClient(server.URL).FeatureDates(context.Background(), "uuid1", "esacci.SST.x")
	require.NoError(t, err)
	require.Len(t, dates, 4)

	start, end := DatesInterval(dates)
	assert.Equal(t, "2001-01-01T00:00:00Z", start)
	assert.Equal(t, "2003-01-31T23:59:59Z", end)
}

func TestDatesInterval_Default(t *testing.T) {
	start, end := DatesInterval(nil)
	assert.Equal(t, DefaultStart, start)
	assert.Equal(t, DefaultEnd, end)
}
