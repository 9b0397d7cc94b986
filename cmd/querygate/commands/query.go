package commands

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/core/query/filterexpr"
	"github.com/satishbabariya/querygate/internal/service"
	"github.com/satishbabariya/querygate/internal/ui"
	"github.com/satishbabariya/querygate/internal/utils/container"
)

type queryOptions struct {
	fields      []string
	where       string
	asJSON      bool
	interactive bool
	explain     bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(app *App) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query [table]",
		Short: "Run a validated SELECT against one table",
		Long: `Run a SELECT against one table. Fields default to every column in
declared order. --where takes equality conditions joined with AND:

  querygate query Album --fields AlbumId,Title --where 'ArtistId = 1'
  querygate query Track --where 'AlbumId = 2 AND Composer = null'

Without a table argument, or with --interactive, the table, fields and
filter are prompted for.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withContainer(cmd, func(ctx context.Context, c *container.Container) error {
				req := domain.QueryRequest{Fields: opts.fields}
				if len(args) == 1 {
					req.Table = args[0]
				}
				return runQuery(ctx, c.QueryService(), req, opts)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&opts.fields, "fields", "f", nil, "columns to return, comma separated")
	cmd.Flags().StringVarP(&opts.where, "where", "w", "", `equality filter, e.g. 'ArtistId = 1 AND Title = "Big Ones"'`)
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the gateway's JSON response")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for table, fields and filter")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "print the rendered statement without running it")

	return cmd
}

func runQuery(ctx context.Context, svc *service.QueryService, req domain.QueryRequest, opts *queryOptions) error {
	where := opts.where
	prompted := opts.interactive || req.Table == ""
	if prompted {
		var err error
		req, where, err = promptQuery(ctx, svc, req, where)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(where) != "" {
		filters, err := filterexpr.Parse(where)
		if err != nil {
			return err
		}
		req.Filters = filters
	}
	if prompted {
		ui.PrintInfo("%s", commandLine(req))
	}

	if opts.explain {
		stmt, err := svc.Explain(ctx, req)
		if err != nil {
			return err
		}
		ui.PrintCodeBlock(stmt.SQL, string(stmt.Dialect))
		for i, arg := range stmt.Args {
			fmt.Fprintln(ui.Out, formatArg(i, arg))
		}
		return nil
	}

	result, err := svc.RunQuery(ctx, req)
	if err != nil {
		return err
	}
	if opts.asJSON {
		return writeJSON(result)
	}

	columns, err := resultColumns(ctx, svc, req, result)
	if err != nil {
		return err
	}
	ui.PrintCodeBlock(result.Query, "sql")
	return ui.PrintResult(columns, result.Rows)
}

// resultColumns names the projection, even for an empty result.
func resultColumns(ctx context.Context, svc *service.QueryService, req domain.QueryRequest, result *domain.QueryResult) ([]string, error) {
	if len(result.Rows) > 0 {
		names := make([]string, len(result.Rows[0]))
		for i, f := range result.Rows[0] {
			names[i] = f.Name
		}
		return names, nil
	}
	if len(req.Fields) > 0 {
		return req.Fields, nil
	}
	info, err := svc.TableInfo(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(info.Columns))
	for i, col := range info.Columns {
		names[i] = col.Name
	}
	return names, nil
}

func promptQuery(ctx context.Context, svc *service.QueryService, req domain.QueryRequest, where string) (domain.QueryRequest, string, error) {
	if req.Table == "" {
		tables, err := svc.ListTables(ctx)
		if err != nil {
			return req, where, err
		}
		if len(tables) == 0 {
			return req, where, fmt.Errorf("the database has no queryable tables")
		}
		prompt := &survey.Select{
			Message:  "Table:",
			Options:  tables,
			PageSize: 15,
		}
		if err := survey.AskOne(prompt, &req.Table); err != nil {
			return req, where, err
		}
	}

	info, err := svc.TableInfo(ctx, req.Table)
	if err != nil {
		return req, where, err
	}

	if len(req.Fields) == 0 {
		options := make([]string, len(info.Columns))
		for i, col := range info.Columns {
			options[i] = col.Name
		}
		prompt := &survey.MultiSelect{
			Message: "Fields (none selects all):",
			Options: options,
			Description: func(value string, index int) string {
				return info.Columns[index].DeclaredType
			},
		}
		if err := survey.AskOne(prompt, &req.Fields); err != nil {
			return req, where, err
		}
	}

	if where == "" {
		prompt := &survey.Input{
			Message: "Filter (optional):",
			Help:    `Equality conditions joined with AND, e.g. ArtistId = 1 AND Title = "Big Ones"`,
		}
		validate := func(ans interface{}) error {
			s, _ := ans.(string)
			if strings.TrimSpace(s) == "" {
				return nil
			}
			_, err := filterexpr.Parse(s)
			return err
		}
		if err := survey.AskOne(prompt, &where, survey.WithValidator(validate)); err != nil {
			return req, where, err
		}
	}

	return req, where, nil
}

// formatArg renders one bound argument of an explained statement.
// commandLine renders req as the equivalent non-interactive invocation.
func commandLine(req domain.QueryRequest) string {
	var b strings.Builder
	b.WriteString("querygate query " + req.Table)
	if len(req.Fields) > 0 {
		b.WriteString(" --fields " + strings.Join(req.Fields, ","))
	}
	if len(req.Filters) > 0 {
		columns := make([]string, 0, len(req.Filters))
		for col := range req.Filters {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		where := filterexpr.Format(columns, req.Filters)
		b.WriteString(" --where '" + strings.ReplaceAll(where, "'", `'\''`) + "'")
	}
	return b.String()
}

func formatArg(i int, arg any) string {
	label := fmt.Sprintf("$%d", i+1)
	if named, ok := arg.(sql.NamedArg); ok {
		label, arg = ":"+named.Name, named.Value
	}
	if s, ok := arg.(string); ok {
		return fmt.Sprintf("  %s = %q", label, s)
	}
	return fmt.Sprintf("  %s = %v", label, arg)
}
