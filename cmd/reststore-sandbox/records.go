package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Ratio1/reststore_go/pkg/record"
	"github.com/Ratio1/reststore_go/pkg/reststore"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Fetch and print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, err := openStore(v, cmd)
			if err != nil {
				return err
			}
			if err := store.Fetch(cmd.Context(), nil); err != nil {
				return err
			}
			all, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), cfg.Output, cfg.PrimaryKey, all)
		},
	}
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a single record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openStore(v, cmd)
			if err != nil {
				return err
			}
			if err := store.Fetch(cmd.Context(), nil); err != nil {
				return err
			}
			rec, err := store.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), cfg.Output, cfg.PrimaryKey, []record.Record{rec})
		},
	}
}

func newSaveCmd(v *viper.Viper) *cobra.Command {
	var (
		id  string
		set []string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a record, or update it when --id is given",
		Example: `  reststore-sandbox save --set first=Dan --set age=42
  reststore-sandbox save --id 7 --set email=dan@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, err := openStore(v, cmd)
			if err != nil {
				return err
			}
			fields, err := parseAssignments(set)
			if err != nil {
				return err
			}
			if id != "" {
				fields[cfg.PrimaryKey] = id
			}
			rec, err := store.Save(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), cfg.Output, cfg.PrimaryKey, []record.Record{rec})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "primary key of an existing record to update")
	cmd.Flags().StringArrayVar(&set, "set", nil, "field assignment key=value; values are parsed as JSON when possible")
	return cmd
}

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openStore(v, cmd, reststore.WithDeletePolicy(reststore.DeleteConfirmed))
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func openStore(v *viper.Viper, cmd *cobra.Command, extra ...reststore.Option) (*sandboxConfig, *reststore.Store, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	if cfg.URL == "" {
		return nil, nil, errors.New("a resource URL is required (--url or RESTSTORE_URL)")
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	opts := append([]reststore.Option{
		reststore.WithURL(cfg.URL),
		reststore.WithTimeout(cfg.Timeout),
		reststore.WithLogger(logger),
	}, extra...)
	return cfg, reststore.New(record.NewSchema(cfg.PrimaryKey), opts...), nil
}

// parseAssignments turns key=value pairs into fields. Values that parse as
// JSON keep their type, anything else is a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[key] = value
	}
	return fields, nil
}

func resolveFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "table"
	}
	return "json"
}

func printRecords(w io.Writer, format, primaryKey string, records []record.Record) error {
	if resolveFormat(format, w) == "json" {
		docs := make([]map[string]any, 0, len(records))
		for _, r := range records {
			docs = append(docs, r.Fields())
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	columns := recordColumns(primaryKey, records)
	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, r := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := r.Get(col); ok {
				row[i] = formatCell(v)
			}
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

// recordColumns lists the primary key first, then every other field name.
func recordColumns(primaryKey string, records []record.Record) []string {
	seen := map[string]bool{primaryKey: true}
	var rest []string
	for _, r := range records {
		for k := range r.Fields() {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append([]string{primaryKey}, rest...)
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
