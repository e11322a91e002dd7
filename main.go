package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"litedb/pkg/database"
	"litedb/pkg/logging"
	"litedb/pkg/ui"
)

type options struct {
	readOnly  bool
	logLevel  string
	logFile   string
	logFormat string
	commands  string
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "litedb [database file]",
		Short: "A small SQL engine over SQLite-format database files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, opts)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "open the database file read-only")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "WARN", "log verbosity: DEBUG, INFO, WARN, ERROR")
	rootCmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.Flags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	rootCmd.Flags().StringVarP(&opts.commands, "command", "c", "", "execute the given statements and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(args []string, opts options) error {
	if err := logging.Init(logging.Config{
		Level:      logging.LogLevel(strings.ToUpper(opts.logLevel)),
		OutputPath: opts.logFile,
		Format:     opts.logFormat,
	}); err != nil {
		return err
	}
	defer logging.Close()

	var db *database.Database
	if len(args) == 1 {
		var err error
		db, err = database.Open(args[0], opts.readOnly)
		if err != nil {
			return err
		}
	} else {
		db = database.NewInMemory()
	}
	defer db.Close()

	if opts.commands != "" {
		return runBatch(db, opts.commands)
	}

	program := tea.NewProgram(ui.NewModel(db), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// runBatch executes semicolon-separated statements and prints results
// to stdout, for scripted use.
func runBatch(db *database.Database, input string) error {
	for _, stmt := range splitStatements(input) {
		rs, err := db.Run(stmt)
		if err != nil {
			return err
		}

		if rs.Desc != nil {
			fmt.Println(strings.Join(rs.Columns(), "|"))
			for _, row := range rs.StringRows() {
				fmt.Println(strings.Join(row, "|"))
			}
		} else if rs.Message != "" {
			fmt.Println(rs.Message)
		} else {
			fmt.Printf("%d row(s) written\n", rs.RowsAffected)
		}
	}
	return nil
}

// splitStatements cuts input on semicolons, respecting single-quoted
// strings.
func splitStatements(input string) []string {
	var out []string
	var b strings.Builder
	inString := false

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == ';' && !inString:
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
