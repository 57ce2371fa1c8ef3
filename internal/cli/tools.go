package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harun/toolflow/pkg/plugin"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/spf13/cobra"
)

var (
	toolsJSON    bool
	toolsRecipes []string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the types recipes can reference",
	Long: `List every constructor and external module method registered in the plugin
registry, i.e. every module/classname (and method) a recipe may reference.`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

var toolsDescribeCmd = &cobra.Command{
	Use:   "describe <recipe>...",
	Short: "Print the function schema of built recipes",
	Long:  `Build each recipe and print its root tool's name, description and JSON parameter schema.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runToolsDescribe,
}

var toolsExecCmd = &cobra.Command{
	Use:   "exec <tool> [context-json]",
	Short: "Run a built recipe by tool name",
	Long: `Build the recipes given with --recipe, register their root tools by name and run
the named one with the JSON object as its execution context.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runToolsExec,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print entries as JSON")
	toolsExecCmd.Flags().StringArrayVarP(&toolsRecipes, "recipe", "r", nil, "recipe file to register, repeatable")
	_ = toolsExecCmd.MarkFlagRequired("recipe")
	toolsCmd.AddCommand(toolsDescribeCmd, toolsExecCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.registry.Entries()
	out := cmd.OutOrStdout()

	if toolsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tMODULE\tCLASSNAME\tARGS / METHOD")
	for _, e := range entries {
		detail := strings.Join(e.Args, ", ")
		if e.Kind == plugin.KindMethod {
			detail = e.Method
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Kind, e.Module, e.ClassName, detail)
	}
	return w.Flush()
}

// registerRecipes builds every recipe and registers its root tool by name.
func registerRecipes(a *app, paths []string) (*toolexecutor.ToolExecutor, error) {
	executor := toolexecutor.New()
	builder := a.builder()
	for _, path := range paths {
		tool, err := builder.BuildFile(path)
		if err != nil {
			return nil, err
		}
		if err := executor.RegisterTool(tool); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return executor, nil
}

func runToolsDescribe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	executor, err := registerRecipes(a, args)
	if err != nil {
		return err
	}

	type described struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
	}
	var out []described
	for _, d := range executor.Descriptors() {
		out = append(out, described{Name: d.Name, Description: d.Description, Parameters: d.JSONSchema()})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runToolsExec(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	executor, err := registerRecipes(a, toolsRecipes)
	if err != nil {
		return err
	}

	contextJSON := ""
	if len(args) > 1 {
		contextJSON = args[1]
	}

	output := executor.Execute(cmd.Context(), args[0], contextJSON)
	fmt.Fprintln(cmd.OutOrStdout(), output)
	if toolexecutor.IsError(output) {
		return fmt.Errorf("tool %s failed", args[0])
	}
	return nil
}
