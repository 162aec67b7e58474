package main

import (
	"github.com/effective-security/felix/config"
	"github.com/effective-security/felix/encoding"
	"github.com/effective-security/felix/tools"
	"github.com/spf13/cobra"
)

// toolView is the printed view of a tool
type toolView struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Provider    string `json:"provider" yaml:"provider" toml:"provider"`
}

type toolsView struct {
	Tools []toolView `json:"tools" yaml:"tools" toml:"tools"`
}

func newToolsCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the local and MCP tools available to the assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc, err := encoding.ForFormat(output)
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfig(flags.configFile)
			if err != nil {
				return err
			}

			a, err := newToolsApp(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := enc.Marshal(newToolsView(a.dispatcher.Descriptors()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = out.Write(b)
			if len(b) > 0 && b[len(b)-1] != '\n' {
				_, _ = out.Write([]byte("\n"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", encoding.FormatYAML, "output format: json|yaml|toml")
	return cmd
}

func newToolsView(list []tools.Descriptor) *toolsView {
	v := &toolsView{Tools: make([]toolView, 0, len(list))}
	for _, td := range list {
		v.Tools = append(v.Tools, toolView{
			Name:        td.Name,
			Description: td.Description,
			Provider:    td.Provider,
		})
	}
	return v
}
