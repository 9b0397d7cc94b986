package gateway

import (
	"fmt"
	"strings"
)

// Route documents one gateway endpoint.
type Route struct {
	Method  string
	Path    string
	Summary string
	Example string
}

// Routes lists the gateway endpoints.
var Routes = []Route{
	{
		Method:  "GET",
		Path:    "/tables/",
		Summary: "List the table names in lexicographic order. /tables/all is accepted too.",
		Example: `curl http://127.0.0.1:8000/tables/`,
	},
	{
		Method:  "GET",
		Path:    "/tables/info/{table}",
		Summary: "Describe a table: column name to declared type, in declared order.",
		Example: `curl http://127.0.0.1:8000/tables/info/Album`,
	},
	{
		Method:  "POST",
		Path:    "/query/",
		Summary: "Run a read query given as {table, fields, filters}. Filters are equality conditions joined with AND.",
		Example: `curl -X POST http://127.0.0.1:8000/query/ -H 'Content-Type: application/json' \
  -d '{"table": "Album", "fields": ["AlbumId", "Title"], "filters": {"ArtistId": 1}}'`,
	},
	{
		Method:  "GET",
		Path:    "/healthcheck",
		Summary: "Report whether the database answers.",
		Example: `curl http://127.0.0.1:8000/healthcheck`,
	},
	{
		Method:  "GET",
		Path:    "/stats",
		Summary: "Query, error and refresh counters with connection pool and plan cache statistics.",
		Example: `curl http://127.0.0.1:8000/stats`,
	},
}

// Markdown renders the endpoint reference.
func Markdown() string {
	var sb strings.Builder
	sb.WriteString("# querygate HTTP API\n\n")
	sb.WriteString("Responses are JSON unless the request sends `Accept: application/msgpack`. ")
	sb.WriteString("Errors are returned as `{\"detail\": {\"type\": ..., \"msg\": ...}}`.\n\n")
	for _, r := range Routes {
		fmt.Fprintf(&sb, "## `%s %s`\n\n%s\n\n```sh\n%s\n```\n\n", r.Method, r.Path, r.Summary, r.Example)
	}
	sb.WriteString("## Status codes\n\n")
	sb.WriteString("| Status | Meaning |\n|---|---|\n")
	sb.WriteString("| 404 | unknown table |\n")
	sb.WriteString("| 422 | missing table, unknown or duplicate column, invalid filter value |\n")
	sb.WriteString("| 400 | malformed body, or the database rejected the statement |\n")
	sb.WriteString("| 503 | the database is unavailable |\n")
	return sb.String()
}
