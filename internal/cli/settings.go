package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"screenshot-pro/internal/config"
	"screenshot-pro/internal/store"
)

func newSettingsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the user settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := store.NewSettingsRepo(env.Store).Load(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(env, s)
		},
	}

	set := &cobra.Command{
		Use:     "set <key=value>...",
		Short:   "Change settings",
		Example: "  screenshot-pro settings set maxScreenshots=20 annotationColor=#3b82f6",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := store.NewSettingsRepo(env.Store)
			s, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}
			s, err = applySettings(s, args)
			if err != nil {
				return err
			}
			if err := repo.Save(cmd.Context(), s); err != nil {
				return err
			}
			return printJSON(env, s)
		},
	}
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return store.NewSettingsRepo(env.Store).Reset(cmd.Context())
		},
	}
	cmd.AddCommand(set, reset)
	return cmd
}

// applySettings sets fields by their JSON names. Values are JSON literals;
// anything that does not parse as JSON is taken as a string.
func applySettings(s store.Settings, pairs []string) (store.Settings, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return s, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return s, err
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return s, fmt.Errorf("%q: want key=value", p)
		}
		if _, known := fields[key]; !known {
			return s, fmt.Errorf("unknown setting %q", key)
		}
		v := json.RawMessage(value)
		if !json.Valid(v) {
			quoted, _ := json.Marshal(value)
			v = quoted
		}
		fields[key] = v
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return s, err
	}
	var out store.Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return s, fmt.Errorf("%w: %v", store.ErrInvalidSettings, err)
	}
	return out, nil
}

func printJSON(env *Env, v any) error {
	enc := json.NewEncoder(env.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newConfigCommand(env *Env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(env.Out, "# source: %s\n", env.Config.Source)
			return config.Encode(env.Out, "."+format, env.Config)
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "toml or yaml")
	return cmd
}
