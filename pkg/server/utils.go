package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/aleksaelezovic/fusiondb/pkg/server/results"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/query"
)

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	log.Printf("Error: %s", message)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":%d,"message":%q}}`, statusCode, message)))
}

// negotiateFormat determines the response format based on Accept header
func (s *Server) negotiateFormat(acceptHeader string) string {
	accept := strings.ToLower(acceptHeader)

	switch {
	case strings.Contains(accept, "application/sparql-results+xml"):
		return "xml"
	case strings.Contains(accept, "application/sparql-results+json"):
		return "json"
	case strings.Contains(accept, "text/csv"):
		return "csv"
	case strings.Contains(accept, "text/tab-separated-values"):
		return "tsv"
	case strings.Contains(accept, "application/json"):
		return "json"
	case strings.Contains(accept, "text/xml"), strings.Contains(accept, "application/xml"):
		return "xml"
	default:
		return "json"
	}
}

// writeResult writes the query result in the specified format
func (s *Server) writeResult(w http.ResponseWriter, result *query.Result, format string) {
	var data []byte
	var err error
	var contentType string

	if result.Kind == query.KindGraph {
		contentType = "application/n-triples; charset=utf-8"
		data, err = results.FormatConstructResultNTriples(result.Triples)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	switch format {
	case "xml":
		contentType = "application/sparql-results+xml; charset=utf-8"
		if result.Kind == query.KindBoolean {
			data, err = results.FormatAskResultXML(result.Boolean)
		} else {
			data, err = results.FormatSelectResultsXML(result.Variables, result.Bindings)
		}

	case "csv":
		contentType = "text/csv; charset=utf-8"
		if result.Kind == query.KindBoolean {
			data, err = results.FormatAskResultCSV(result.Boolean)
		} else {
			data, err = results.FormatSelectResultsCSV(result.Variables, result.Bindings)
		}

	case "tsv":
		contentType = "text/tab-separated-values; charset=utf-8"
		if result.Kind == query.KindBoolean {
			data, err = results.FormatAskResultTSV(result.Boolean)
		} else {
			data, err = results.FormatSelectResultsTSV(result.Variables, result.Bindings)
		}

	default: // json
		contentType = "application/sparql-results+json; charset=utf-8"
		if result.Kind == query.KindBoolean {
			data, err = results.FormatAskResultJSON(result.Boolean)
		} else {
			data, err = results.FormatSelectResultsJSON(result.Variables, result.Bindings)
		}
	}

	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
