package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Ask for organization suggestions",
}

var suggestFileCmd = &cobra.Command{
	Use:   "file [file-id]",
	Short: "Suggest a folder and tags for one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := suggestBody(cmd)
		if err != nil {
			return err
		}
		return run(cmd, http.MethodPost, "/api/organization/suggest/file/"+url.PathEscape(args[0]), body)
	},
}

var suggestBatchCmd = &cobra.Command{
	Use:   "batch [file-id...]",
	Short: "Suggest organization for several files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := suggestBody(cmd)
		if err != nil {
			return err
		}
		body["fileIds"] = args
		return run(cmd, http.MethodPost, "/api/organization/suggest/batch", body)
	},
}

var suggestFolderCmd = &cobra.Command{
	Use:   "folder [folder-id]",
	Short: "Suggest a name and tags for a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := suggestBody(cmd)
		if err != nil {
			return err
		}
		return run(cmd, http.MethodPost, "/api/organization/suggest/folder/"+url.PathEscape(args[0]), body)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply [file-id] [suggested-path]",
	Short: "Move a file to a suggested path and tag it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, _ := cmd.Flags().GetStringSlice("tag")
		return run(cmd, http.MethodPost, "/api/organization/apply", map[string]interface{}{
			"fileId":        args[0],
			"suggestedPath": args[1],
			"tags":          tags,
		})
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd, applyCmd)
	suggestCmd.AddCommand(suggestFileCmd, suggestBatchCmd, suggestFolderCmd)

	for _, c := range []*cobra.Command{suggestFileCmd, suggestBatchCmd, suggestFolderCmd} {
		c.Flags().StringArray("context", nil, "user context entry as key=value, repeatable")
	}
	applyCmd.Flags().StringSlice("tag", nil, "tag to add, repeatable")
}

// suggestBody builds the request body from the repeated --context flags.
func suggestBody(cmd *cobra.Command) (map[string]interface{}, error) {
	entries, _ := cmd.Flags().GetStringArray("context")
	userContext := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --context %q, expected key=value", e)
		}
		userContext[k] = v
	}
	return map[string]interface{}{"userContext": userContext}, nil
}

func run(cmd *cobra.Command, method, path string, body interface{}) error {
	env, err := newClientFromFlags().doJSON(method, path, body)
	if err != nil {
		return err
	}
	return printData(cmd.OutOrStdout(), env)
}
