package cmd

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage stored files",
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		desc, _ := cmd.Flags().GetString("description")
		env, err := newClientFromFlags().upload(args[0], folder, desc)
		if err != nil {
			return err
		}
		return printData(cmd.OutOrStdout(), env)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files, optionally filtered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		for _, name := range []string{"folderId", "search", "tags", "type"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				q.Set(name, v)
			}
		}
		path := "/api/files"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		env, err := newClientFromFlags().doJSON(http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return printData(cmd.OutOrStdout(), env)
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(uploadCmd, listCmd)

	uploadCmd.Flags().String("folder", "", "target folder id (root when empty)")
	uploadCmd.Flags().String("description", "", "file description")

	listCmd.Flags().String("folderId", "", "folder id, or root")
	listCmd.Flags().String("search", "", "name substring")
	listCmd.Flags().String("tags", "", "comma separated tag names")
	listCmd.Flags().String("type", "", "mime type prefix")
}
