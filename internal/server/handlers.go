package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"runtime"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
	"github.com/KaramelBytes/vizloom-cli/internal/sample"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// PingResponse reports service status and version.
type PingResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// RegisterRoutes registers every endpoint on mux. Routes answer with and
// without a trailing slash.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.Banner)
	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("GET /ping", s.Ping)

	handle := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(method+" /"+path, h)
		mux.HandleFunc(method+" /"+path+"/{$}", h)
	}
	handle(http.MethodPost, "upload-csv", s.Upload("csv"))
	handle(http.MethodPost, "upload-json", s.Upload("json"))
	handle(http.MethodPost, "upload", s.Upload(""))
	handle(http.MethodPost, "process-data", s.ProcessData)
	handle(http.MethodPost, "analyze-data", s.AnalyzeData)
	handle(http.MethodGet, "sample-data", s.SampleData)
}

func (s *Server) Banner(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string]string{"message": "vizloom data processing API"})
}

// Health is a liveness check.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string]string{"status": "ok"})
}

func (s *Server) Ping(w http.ResponseWriter, r *http.Request) {
	s.respond(w, PingResponse{
		Status:    "ok",
		Service:   "vizloom",
		Version:   s.opts.Version,
		GoVersion: runtime.Version(),
	})
}

// Upload decodes an uploaded file into {data, summary}. The body is either
// a multipart form with a "file" part or the raw content. An empty format
// picks the decoder from the file name, content type, or content.
func (s *Server) Upload(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, filename, contentType, err := uploadBody(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		defer body.Close()

		var ds *pipeline.Dataset
		if format != "" {
			ds, err = s.proc.IngestAs(format, body)
		} else {
			ds, err = s.proc.Ingest(filename, contentType, body)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, ds)
	}
}

func uploadBody(r *http.Request) (io.ReadCloser, string, string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return r.Body, r.URL.Query().Get("filename"), r.Header.Get("Content-Type"), nil
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", "", badRequest("read multipart form", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", "", badRequest(`missing form field "file"`, nil)
		}
		if err != nil {
			return nil, "", "", badRequest("read multipart form", err)
		}
		if part.FormName() == "file" {
			return part, part.FileName(), part.Header.Get("Content-Type"), nil
		}
		part.Close()
	}
}

// ProcessData runs the full pipeline on {data, query, max_points}.
func (s *Server) ProcessData(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.MaxPoints < 0 {
		s.fail(w, r, badRequest("max_points must not be negative", nil))
		return
	}
	if limit := s.opts.MaxPoints; limit > 0 && req.MaxPoints > limit {
		s.fail(w, r, badRequest(fmt.Sprintf("max_points must not exceed %d", limit), nil))
		return
	}
	resp, err := s.proc.Process(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, resp)
}

// AnalyzeData summarises an array of records.
func (s *Server) AnalyzeData(w http.ResponseWriter, r *http.Request) {
	var t table.Table
	if err := decodeJSON(r, &t); err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.proc.Analyze(&t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, summary)
}

// SampleData returns the bundled sample with its summary.
func (s *Server) SampleData(w http.ResponseWriter, r *http.Request) {
	t, err := sample.Load()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.proc.Analyze(t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, pipeline.Dataset{Data: t, Summary: summary})
}

func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "json") {
		return badRequest("expected a JSON body, got "+ct, nil)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("decode request body", err)
	}
	return nil
}
