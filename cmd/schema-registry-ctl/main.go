// Package main is the entry point for the schema registry control CLI.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	serverURL string
	output    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schema-registry-ctl",
		Short: "Control CLI for the schema registry",
		Long:  `A command-line tool for registering, inspecting, and configuring schemas against a running schema registry node.`,
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8081", "Schema registry server URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table, json")

	subjectCmd := &cobra.Command{
		Use:   "subject",
		Short: "Inspect and register subjects and schemas",
	}

	subjectListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all subjects",
		RunE:  listSubjects,
	}

	subjectVersionsCmd := &cobra.Command{
		Use:   "versions <subject>",
		Short: "List the versions registered under a subject",
		Args:  cobra.ExactArgs(1),
		RunE:  listVersions,
	}

	subjectGetCmd := &cobra.Command{
		Use:   "get <subject> <version>",
		Short: "Fetch a specific version (or 'latest') of a subject",
		Args:  cobra.ExactArgs(2),
		RunE:  getVersion,
	}

	subjectRegisterCmd := &cobra.Command{
		Use:   "register <subject> <schema-file>",
		Short: "Register a schema under a subject",
		Args:  cobra.ExactArgs(2),
		RunE:  registerSchema,
	}

	subjectLookupCmd := &cobra.Command{
		Use:   "lookup <subject> <schema-file>",
		Short: "Find the registered ID and version of an exact schema",
		Args:  cobra.ExactArgs(2),
		RunE:  lookupSchema,
	}

	subjectCmd.AddCommand(subjectListCmd, subjectVersionsCmd, subjectGetCmd, subjectRegisterCmd, subjectLookupCmd)

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Look up schemas by global ID",
	}

	schemaGetCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a schema by its global ID",
		Args:  cobra.ExactArgs(1),
		RunE:  getSchemaByID,
	}

	schemaCmd.AddCommand(schemaGetCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read and update compatibility configuration",
	}

	configGetCmd := &cobra.Command{
		Use:   "get [subject]",
		Short: "Get the compatibility level (global, or for a subject)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  getConfig,
	}

	configSetCmd := &cobra.Command{
		Use:   "set <level> [subject]",
		Short: "Set the compatibility level (global, or for a subject)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  setConfig,
	}

	configCmd.AddCommand(configGetCmd, configSetCmd)

	compatCmd := &cobra.Command{
		Use:   "check-compatibility <subject> <version> <schema-file>",
		Short: "Test whether a schema is compatible with a registered version",
		Args:  cobra.ExactArgs(3),
		RunE:  checkCompatibility,
	}
	compatCmd.Flags().Bool("verbose", false, "Include the compatibility checker's messages")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("schema-registry-ctl %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}

	rootCmd.AddCommand(subjectCmd, schemaCmd, configCmd, compatCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func doRequest(method, path string, body interface{}) (map[string]interface{}, int, error) {
	url := strings.TrimSuffix(serverURL, "/") + path

	var req *http.Request
	var err error

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		req, err = http.NewRequest(method, url, strings.NewReader(string(jsonBody)))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req) // #nosec G704 -- control CLI; URL is from user-provided --server flag
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode != http.StatusNoContent {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := "unknown error"
		if m, ok := result["message"].(string); ok {
			msg = m
		}
		return result, resp.StatusCode, fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
	}

	return result, resp.StatusCode, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readSchemaFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read schema file: %w", err)
	}
	return string(data), nil
}

func listSubjects(cmd *cobra.Command, args []string) error {
	url := strings.TrimSuffix(serverURL, "/") + "/subjects"
	resp, err := http.Get(url) // #nosec G704 -- control CLI; URL is from user-provided --server flag
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var subjects []string
	if err := json.NewDecoder(resp.Body).Decode(&subjects); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if output == "json" {
		return printJSON(subjects)
	}
	for _, s := range subjects {
		fmt.Println(s)
	}
	return nil
}

func listVersions(cmd *cobra.Command, args []string) error {
	subject := args[0]
	url := strings.TrimSuffix(serverURL, "/") + "/subjects/" + subject + "/versions"
	resp, err := http.Get(url) // #nosec G704 -- control CLI; URL is from user-provided --server flag
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error (%d): subject %q not found", resp.StatusCode, subject)
	}

	var versions []int
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if output == "json" {
		return printJSON(versions)
	}
	for _, v := range versions {
		fmt.Println(v)
	}
	return nil
}

func getVersion(cmd *cobra.Command, args []string) error {
	subject, version := args[0], args[1]
	result, _, err := doRequest("GET", "/subjects/"+subject+"/versions/"+version, nil)
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(result)
	}

	fmt.Printf("Subject: %v\n", result["subject"])
	fmt.Printf("Version: %v\n", result["version"])
	fmt.Printf("ID:      %v\n", result["id"])
	fmt.Printf("Schema:  %v\n", result["schema"])
	return nil
}

func getSchemaByID(cmd *cobra.Command, args []string) error {
	result, _, err := doRequest("GET", "/schemas/ids/"+args[0], nil)
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(result)
	}
	fmt.Printf("%v\n", result["schema"])
	return nil
}

func registerSchema(cmd *cobra.Command, args []string) error {
	subject, schemaPath := args[0], args[1]
	text, err := readSchemaFile(schemaPath)
	if err != nil {
		return err
	}

	result, _, err := doRequest("POST", "/subjects/"+subject+"/versions", map[string]interface{}{
		"schema": text,
	})
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(result)
	}
	fmt.Printf("Registered schema ID %v under subject %q\n", result["id"], subject)
	return nil
}

func lookupSchema(cmd *cobra.Command, args []string) error {
	subject, schemaPath := args[0], args[1]
	text, err := readSchemaFile(schemaPath)
	if err != nil {
		return err
	}

	result, _, err := doRequest("POST", "/subjects/"+subject, map[string]interface{}{
		"schema": text,
	})
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(result)
	}
	fmt.Printf("Subject: %v\n", result["subject"])
	fmt.Printf("Version: %v\n", result["version"])
	fmt.Printf("ID:      %v\n", result["id"])
	return nil
}

func getConfig(cmd *cobra.Command, args []string) error {
	path := "/config"
	if len(args) == 1 {
		path = "/config/" + args[0]
	}

	result, status, err := doRequest("GET", path, nil)
	if err != nil {
		if status == http.StatusNotFound {
			fmt.Println("no subject-level compatibility level is configured")
			return nil
		}
		return err
	}

	if output == "json" {
		return printJSON(result)
	}
	fmt.Printf("Compatibility: %v\n", result["compatibilityLevel"])
	return nil
}

func setConfig(cmd *cobra.Command, args []string) error {
	level := args[0]
	path := "/config"
	if len(args) == 2 {
		path = "/config/" + args[1]
	}

	result, _, err := doRequest("PUT", path, map[string]interface{}{
		"compatibility": level,
	})
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(result)
	}
	fmt.Printf("Compatibility set to %v\n", result["compatibilityLevel"])
	return nil
}

func checkCompatibility(cmd *cobra.Command, args []string) error {
	subject, version, schemaPath := args[0], args[1], args[2]
	text, err := readSchemaFile(schemaPath)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	path := "/compatibility/subjects/" + subject + "/versions/" + version
	if verbose {
		path += "?verbose=true"
	}

	result, _, err := doRequest("POST", path, map[string]interface{}{
		"schema": text,
	})
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(result)
	}

	fmt.Printf("Compatible: %v\n", result["is_compatible"])
	if msgs, ok := result["messages"].([]interface{}); ok && len(msgs) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, m := range msgs {
			fmt.Fprintf(w, "  - %v\n", m)
		}
		w.Flush()
	}
	return nil
}
