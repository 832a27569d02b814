package predict

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/jobs"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/logging"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

var seq60 = strings.Repeat("MKTAYIAKQR", 6)

const pdbJSON = `["ATOM      1  N   MET A   1\n","END\n"]`

func TestPredict_DirectResponse(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k3y", r.Header.Get("Authorization"))
		assert.Equal(t, "300", r.Header.Get("NVCF-POLL-SECONDS"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, pdbJSON)
	}))
	defer srv.Close()

	c := &Client{SubmitURL: srv.URL, StatusURL: srv.URL, APIKey: "k3y", HTTPClient: srv.Client()}
	body, err := c.Predict(context.Background(), "P1", seq60)
	require.NoError(t, err)
	assert.Equal(t, pdbJSON, string(body))

	assert.Equal(t, seq60, got.Sequence)
	assert.Equal(t, "mmseqs2", got.Algorithm)
	assert.Equal(t, 0.0001, got.EValue)
	assert.Equal(t, 1, got.Iterations)
	assert.Equal(t, []string{"small_bfd"}, got.Databases)
	assert.False(t, got.RelaxPrediction)
	assert.True(t, got.SkipTemplateSearch)
}

func TestPredict_PollsUntilDone(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/alphafold2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("nvcf-reqid", "req-42")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/v1/status/req-42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		if atomic.AddInt32(&polls, 1) < 3 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		io.WriteString(w, pdbJSON)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var attempts []int
	c := &Client{
		SubmitURL:    srv.URL + "/v1/alphafold2",
		StatusURL:    srv.URL + "/v1/status/",
		APIKey:       "k",
		HTTPClient:   srv.Client(),
		PollInterval: time.Millisecond,
		Polled:       func(reqID string, attempt int) { attempts = append(attempts, attempt) },
	}
	body, err := c.Predict(context.Background(), "P1", seq60)
	require.NoError(t, err)
	assert.Equal(t, pdbJSON, string(body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&polls))
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestPredict_TooShortMakesNoRequest(t *testing.T) {
	c := &Client{HTTPClient: &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatalf("HTTP should not be called for short sequences")
		return nil, nil
	})}}
	_, err := c.Predict(context.Background(), "P1", strings.Repeat("A", 49))
	assert.ErrorIs(t, err, ErrSequenceTooShort)
}

func TestPredict_Errors(t *testing.T) {
	respond := func(code int, hdr http.Header, body string) *http.Client {
		return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if hdr == nil {
				hdr = make(http.Header)
			}
			return &http.Response{StatusCode: code, Header: hdr, Body: io.NopCloser(strings.NewReader(body))}, nil
		})}
	}

	c := &Client{HTTPClient: respond(http.StatusUnauthorized, nil, "bad key")}
	_, err := c.Predict(context.Background(), "P1", seq60)
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Contains(t, err.Error(), "bad key")

	c = &Client{HTTPClient: respond(http.StatusAccepted, nil, "")}
	_, err = c.Predict(context.Background(), "P1", seq60)
	assert.ErrorIs(t, err, ErrNoRequestID)

	c = &Client{HTTPClient: &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}}
	_, err = c.Predict(context.Background(), "P1", seq60)
	assert.Error(t, err)
}

func TestPredict_CancelStopsPolling(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("nvcf-reqid", "r1")
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	c := &Client{
		PollInterval: time.Millisecond,
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) == 3 {
				cancel()
			}
			return &http.Response{StatusCode: http.StatusAccepted, Header: hdr, Body: io.NopCloser(strings.NewReader(""))}, nil
		})},
	}
	_, err := c.Predict(ctx, "P1", seq60)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToPDB(t *testing.T) {
	got, err := ToPDB([]byte(pdbJSON))
	require.NoError(t, err)
	assert.Equal(t, "ATOM      1  N   MET A   1\nEND\n", string(got))

	_, err = ToPDB([]byte(`{"error":"x"}`))
	assert.Error(t, err)
}

type memLedger struct {
	jobs map[string]*jobs.Job
	n    int
}

func (m *memLedger) Create(_ context.Context, acc string) (jobs.Job, error) {
	m.n++
	j := jobs.Job{ID: acc, Accession: acc, State: jobs.StateSubmitted}
	m.jobs[j.ID] = &j
	return j, nil
}

func (m *memLedger) Update(_ context.Context, id string, state jobs.State, reqID, msg string) error {
	j := m.jobs[id]
	j.State = state
	if reqID != "" {
		j.RequestID = reqID
	}
	j.Message = msg
	return nil
}

func TestRunner_WritesFilesAndContinuesPastFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if strings.HasPrefix(req.Sequence, "W") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, pdbJSON)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "predicciones")
	ledger := &memLedger{jobs: map[string]*jobs.Job{}}
	r := &Runner{
		Client: &Client{SubmitURL: srv.URL + "/submit", HTTPClient: srv.Client()},
		OutDir: dir,
		Logger: logging.Discard(),
		Ledger: ledger,
	}
	out, err := r.Run(context.Background(), []Entry{
		{Accession: "BAD", Sequence: strings.Repeat("W", 60)},
		{Accession: "TINY", Sequence: "MKT"},
		{Accession: "P1", Sequence: seq60},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Error(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, ErrSequenceTooShort)
	require.NoError(t, out[2].Err)

	raw, err := os.ReadFile(filepath.Join(dir, "P1.json"))
	require.NoError(t, err)
	assert.Equal(t, pdbJSON, string(raw))
	pdb, err := os.ReadFile(filepath.Join(dir, "P1.pdb"))
	require.NoError(t, err)
	assert.Equal(t, "ATOM      1  N   MET A   1\nEND\n", string(pdb))
	_, err = os.Stat(filepath.Join(dir, "BAD.json"))
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, 3, ledger.n)
	assert.Equal(t, jobs.StateFailed, ledger.jobs["BAD"].State)
	assert.Equal(t, jobs.StateSkipped, ledger.jobs["TINY"].State)
	assert.Equal(t, jobs.StateDone, ledger.jobs["P1"].State)
}

func TestLoadSequences_ShortThenLong(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "microdomains_short.fasta")
	long := filepath.Join(dir, "microdomains_long.fasta")
	require.NoError(t, os.WriteFile(short, []byte(">P1 Domain:1-5\nMKTAY\n"), 0o644))
	require.NoError(t, os.WriteFile(long, []byte(">P1 Domain:1-200\nAAAA\n>P2 Domain:1-120\nCC-CC\n"), 0o644))

	l, err := LoadSequences(short, long, filepath.Join(dir, "missing.fasta"))
	require.NoError(t, err)
	s, ok := l.Find("P1")
	require.True(t, ok)
	assert.Equal(t, "MKTAY", s)
	s, ok = l.Find("P2")
	require.True(t, ok)
	assert.Equal(t, "CCCC", s)
	_, ok = l.Find("P3")
	assert.False(t, ok)
}
