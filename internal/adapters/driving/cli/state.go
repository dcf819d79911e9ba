package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect replication state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored bookmarks",
	Long: `Shows the bookmark of every incremental stream.

State is read from --state when given, otherwise from the state store
configured in --config.`,
	Args: cobra.NoArgs,
	RunE: runStateShow,
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	rootCmd.AddCommand(stateCmd)
}

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

func runStateShow(cmd *cobra.Command, _ []string) error {
	state, err := readStoredState(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := bookmarkRows(state)
	styled := isTerminal(out)

	if len(rows) == 0 {
		msg := "No bookmarks recorded."
		if styled {
			msg = mutedStyle.Render(msg)
		}
		fmt.Fprintln(out, msg)
	} else if styled {
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(borderStyle).
			Headers("STREAM", "FIELD", "BOOKMARK").
			Rows(rows...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		fmt.Fprintln(out, t.Render())
	} else {
		for _, r := range rows {
			fmt.Fprintf(out, "%s\t%s\t%s\n", r[0], r[1], r[2])
		}
	}

	if state.CurrentlySyncing != "" {
		msg := fmt.Sprintf("Interrupted while syncing: %s", state.CurrentlySyncing)
		if styled {
			msg = mutedStyle.Render(msg)
		}
		fmt.Fprintln(out, msg)
	}
	return nil
}

// readStoredState reads the --state file, or the configured durable store.
func readStoredState(cmd *cobra.Command) (*domain.State, error) {
	if statePath == "" && configPath == "" {
		return nil, fmt.Errorf("%w: --state or --config is required", domain.ErrInvalidInput)
	}
	if statePath != "" {
		return loadInitialState(cmd.Context(), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openStateStore(cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore() //nolint:errcheck
	if store == nil {
		return nil, errors.New("no state store configured: set state_backend in the config or pass --state")
	}
	return loadInitialState(cmd.Context(), store)
}

// bookmarkRows flattens the bookmarks into sorted stream/field/value rows.
func bookmarkRows(state *domain.State) [][]string {
	var rows [][]string
	for stream, fields := range state.Bookmarks {
		for field, value := range fields {
			rows = append(rows, []string{stream, field, value})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			return rows[i][0] < rows[j][0]
		}
		return rows[i][1] < rows[j][1]
	})
	return rows
}
