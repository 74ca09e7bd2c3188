package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/CTAG07/gsql/pkg/sqlexec"
	"github.com/CTAG07/gsql/pkg/sqltpl"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	configPath string
	tmplFile   string
	tmplName   string
	paramsJSON string
	outPath    string
	scalarOnly bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "gsql",
		Short:   "Render and run templated SQL",
		Long:    `gsql renders SQL templates with injection-safe parameter binding and runs them against a SQLite database.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./gsql.json", "path to the JSON config file")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render a SQL template without executing it",
		Example: `  gsql render --file query.tmpl.sql --params '{"status": "active"}'
  echo 'SELECT * FROM users WHERE id = {{bind .id}}' | gsql render --params '{"id": 7}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender()
		},
	}
	addTemplateFlags(renderCmd)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Render and execute a SQL query, printing rows as JSON",
		Example: `  gsql query --template users_by_status.tmpl.sql --params '{"status": "active"}'
  gsql query --file count.tmpl.sql --scalar`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context())
		},
	}
	addTemplateFlags(queryCmd)
	queryCmd.Flags().StringVar(&outPath, "out", "", "write the JSON output to a file atomically instead of stdout")
	queryCmd.Flags().BoolVar(&scalarOnly, "scalar", false, "print only the first column of the first row")

	execCmd := &cobra.Command{
		Use:   "exec",
		Short: "Render and execute a SQL statement, printing rows affected",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context())
		},
	}
	addTemplateFlags(execCmd)

	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "List the statement templates found in the template directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplates()
		},
	}

	rootCmd.AddCommand(renderCmd, queryCmd, execCmd, templatesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addTemplateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tmplFile, "file", "", "read the SQL template from a file (default: stdin)")
	cmd.Flags().StringVar(&tmplName, "template", "", "use a named template from the template directory")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "template parameters as a JSON object")
}

// setup loads the config and constructs the logger and renderer shared by
// all subcommands.
func setup() (*Config, *slog.Logger, *sqltpl.Renderer, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(config.LogLevel),
	}))

	templateDir := config.TemplateDir
	if _, err := os.Stat(templateDir); os.IsNotExist(err) {
		templateDir = ""
	}

	renderer, err := sqltpl.NewRenderer(logger, config.Renderer, templateDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	return config, logger, renderer, nil
}

func parseParams() (map[string]any, error) {
	params := map[string]any{}
	if paramsJSON == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return nil, fmt.Errorf("failed to parse --params: %w", err)
	}
	return params, nil
}

func readTemplateText() (string, error) {
	if tmplFile != "" {
		data, err := os.ReadFile(tmplFile)
		if err != nil {
			return "", fmt.Errorf("failed to read template file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read template from stdin: %w", err)
	}
	return string(data), nil
}

func renderStatement(renderer *sqltpl.Renderer, params map[string]any) (sqltpl.Statement, error) {
	if tmplName != "" {
		return renderer.RenderNamed(tmplName, params)
	}
	text, err := readTemplateText()
	if err != nil {
		return sqltpl.Statement{}, err
	}
	return renderer.Render(text, params)
}

func runRender() error {
	config, _, renderer, err := setup()
	if err != nil {
		return err
	}

	params, err := parseParams()
	if err != nil {
		return err
	}

	stmt, err := renderStatement(renderer, params)
	if err != nil {
		return err
	}

	style, err := sqltpl.ParseBindStyle(config.BindStyle)
	if err != nil {
		return err
	}
	query, args, err := stmt.Bind(style)
	if err != nil {
		return err
	}

	fmt.Println(query)
	if len(args) > 0 {
		data, err := json.MarshalIndent(args, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "-- args: %s\n", data)
	}
	return nil
}

func openRunner(logger *slog.Logger, config *Config, renderer *sqltpl.Renderer) (*sqlexec.Runner, *sql.DB, error) {
	style, err := sqltpl.ParseBindStyle(config.BindStyle)
	if err != nil {
		return nil, nil, err
	}
	db, err := initDB(config.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	runner := sqlexec.NewRunner(db, renderer, style)
	runner.SetLogger(logger)
	return runner, db, nil
}

func runQuery(ctx context.Context) error {
	config, logger, renderer, err := setup()
	if err != nil {
		return err
	}
	params, err := parseParams()
	if err != nil {
		return err
	}

	runner, db, err := openRunner(logger, config, renderer)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	var results *sqlexec.Results
	if tmplName != "" {
		results, err = runner.QueryNamed(ctx, tmplName, params)
	} else {
		var text string
		text, err = readTemplateText()
		if err != nil {
			return err
		}
		results, err = runner.Query(ctx, text, params)
	}
	if err != nil {
		return err
	}

	if scalarOnly {
		value, err := results.Scalar()
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	}

	rows, err := results.Dicts()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := atomic.WriteFile(outPath, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		logger.Info("Wrote query results", "path", outPath, "rows", len(rows))
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func runExec(ctx context.Context) error {
	config, logger, renderer, err := setup()
	if err != nil {
		return err
	}
	params, err := parseParams()
	if err != nil {
		return err
	}

	runner, db, err := openRunner(logger, config, renderer)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	var result sql.Result
	if tmplName != "" {
		result, err = runner.ExecNamed(ctx, tmplName, params)
	} else {
		var text string
		text, err = readTemplateText()
		if err != nil {
			return err
		}
		result, err = runner.Exec(ctx, text, params)
	}
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	fmt.Printf("%d row(s) affected\n", affected)
	return nil
}

func runTemplates() error {
	_, _, renderer, err := setup()
	if err != nil {
		return err
	}
	names := renderer.TemplateNames()
	if len(names) == 0 {
		fmt.Println("no statement templates loaded")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
