package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore"
	"github.com/rohmanhakim/prompt-loader/internal/storage"
	"github.com/rohmanhakim/prompt-loader/pkg/fileutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render <key>",
		Short: "Fetch a template and render it with the given values.",
		Long: `Fetch the template addressed by <key> (e.g. image/describe.md) and
substitute its {{placeholder}} tokens.

The result goes to stdout unless --write or --output-dir is given, in
which case it is written to <output-dir>/<key>.

Values come from --vars-file (a JSON or YAML object) and --var name=value
pairs, with --var taking precedence. Unknown placeholders are left as is.

If the template cannot be loaded an empty result is produced and a warning
is printed; pass --strict to fail instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runRender,
	}

	renderCmd.Flags().StringArrayVar(&renderVars, "var", []string{}, "placeholder value as name=value (can be repeated)")
	renderCmd.Flags().StringVar(&renderVarsFile, "vars-file", "", "JSON or YAML file holding an object of placeholder values")
	renderCmd.Flags().BoolVar(&renderWrite, "write", false, "write the result to <output-dir>/<key> instead of stdout")
	renderCmd.Flags().StringVar(&renderOutputDir, "output-dir", "", "output directory; setting it implies --write (default \"output\")")
	renderCmd.Flags().BoolVar(&renderStrict, "strict", false, "exit with an error when the template cannot be loaded")

	return renderCmd
}

func runRender(cmd *cobra.Command, args []string) error {
	key := args[0]
	out := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}

	rc, err := buildRenderContext(renderVarsFile, renderVars)
	if err != nil {
		return err
	}

	recorder := metadata.NewRecorder(0)
	store := newStore(cfg, recorder)

	rendered, result := store.LoadAndRender(cmd.Context(), key, rc)
	if result.IsFailure() {
		if renderStrict {
			return fmt.Errorf("loading template %q: %w", key, result.Err())
		}
		out.Warn("template %q could not be loaded (%v); rendering an empty template", key, result.Err())
	}

	// --output-dir implies --write.
	if !renderWrite && renderOutputDir == "" {
		out.Output(rendered)
		return nil
	}

	sink := storage.NewLocalSink(recorder)
	writeResult, writeErr := sink.Write(cfg.OutputDir(), key, rendered)
	if writeErr != nil {
		return writeErr
	}
	out.Success("wrote %s", writeResult.Path())
	out.Info("blake3", writeResult.ContentHash())
	return nil
}

// buildRenderContext merges values from varsFile with name=value pairs;
// pairs win on conflict.
func buildRenderContext(varsFile string, pairs []string) (promptstore.RenderContext, error) {
	rc := promptstore.RenderContext{}

	if varsFile != "" {
		fileValues, err := readVarsFile(varsFile)
		if err != nil {
			return nil, err
		}
		for name, value := range fileValues {
			rc[name] = value
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", pair)
		}
		rc[name] = value
	}

	return rc, nil
}

func readVarsFile(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vars file: %w", err)
	}

	values := map[string]any{}
	switch ext := fileutil.GetFileExtension(path); ext {
	case "yaml", "yml":
		err = yaml.Unmarshal(content, &values)
	default:
		dec := json.NewDecoder(bytes.NewReader(content))
		dec.UseNumber()
		err = dec.Decode(&values)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing vars file %s: %w", path, err)
	}
	return values, nil
}
