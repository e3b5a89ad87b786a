package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/database"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/migrations"
)

// apiClient is a minimal HTTP wrapper over the Action API (spec.md §4.15),
// grounded on the teacher's cmd/slctl apiClient (cmd/slctl/client.go):
// a base URL, a bearer/shared-secret credential, and a *http.Client.
type apiClient struct {
	baseURL string
	secret  string
	bearer  string
	http    *http.Client
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-ROADMAP-AI-SECRET", c.secret)
	} else if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil && len(respBody) > 0 {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

// issueBearerToken mints a short-lived HS256 bearer token for a secret
// already trusted by the Action API's HS256BearerValidator, for operators
// who prefer bearer auth over the shared-secret header.
func issueBearerToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func main() {
	var (
		baseURL      string
		secret       string
		bearer       string
		bearerSecret string
	)

	root := &cobra.Command{
		Use:   "roadmapctl",
		Short: "Operate the Product Roadmap Intelligence action API and database",
	}
	root.PersistentFlags().StringVar(&baseURL, "addr", "http://localhost:8080", "Action API base URL")
	root.PersistentFlags().StringVar(&secret, "secret", os.Getenv("ROADMAP_AI_SECRET"), "shared secret for X-ROADMAP-AI-SECRET")
	root.PersistentFlags().StringVar(&bearer, "bearer", os.Getenv("ROADMAP_BEARER_TOKEN"), "bearer token (used when --secret is empty)")

	client := func() *apiClient {
		return &apiClient{baseURL: baseURL, secret: secret, bearer: bearer, http: &http.Client{Timeout: 30 * time.Second}}
	}

	var (
		scope        []string
		optionsJSON  string
		sheetCtxJSON string
	)
	runCmd := &cobra.Command{
		Use:   "run <action>",
		Short: "Enqueue an ActionRun (spec.md §4.15 POST /actions/run)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := parseJSONObject(optionsJSON)
			if err != nil {
				return fmt.Errorf("--options: %w", err)
			}
			sheetContext, err := parseJSONObject(sheetCtxJSON)
			if err != nil {
				return fmt.Errorf("--sheet-context: %w", err)
			}
			req := map[string]any{
				"action":        args[0],
				"scope":         map[string]any{"type": "selection", "initiative_keys": scope},
				"options":       options,
				"sheet_context": sheetContext,
			}
			var resp map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/actions/run", req, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	runCmd.Flags().StringSliceVar(&scope, "scope", nil, "initiative_key selection, repeatable or comma-separated")
	runCmd.Flags().StringVar(&optionsJSON, "options", "", "JSON object of handler options")
	runCmd.Flags().StringVar(&sheetCtxJSON, "sheet-context", "", "JSON object of sheet context (e.g. {\"tab\":\"Params\"})")

	statusCmd := &cobra.Command{
		Use:   "status <run_id>",
		Short: "Poll an ActionRun's status (spec.md §4.15 GET /actions/run/{run_id})",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/actions/run/"+args[0], nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	var tokenTTL time.Duration
	var tokenSubject string
	tokenCmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint an HS256 bearer token accepted by the Action API's optional bearer mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(bearerSecret) == "" {
				return fmt.Errorf("--bearer-secret is required")
			}
			tok, err := issueBearerToken(bearerSecret, tokenSubject, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&bearerSecret, "bearer-secret", os.Getenv("ROADMAP_BEARER_SECRET"), "HS256 secret to sign with")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "roadmapctl", "token subject claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")

	var migrateDSN string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(migrateDSN) == "" {
				migrateDSN = os.Getenv("DATABASE_URL")
			}
			if strings.TrimSpace(migrateDSN) == "" {
				return fmt.Errorf("--dsn or DATABASE_URL is required")
			}
			ctx := cmd.Context()
			db, err := database.Open(ctx, migrateDSN)
			if err != nil {
				return err
			}
			defer db.Close()
			return applyMigrations(ctx, db)
		},
	}
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "PostgreSQL DSN")

	root.AddCommand(runCmd, statusCmd, tokenCmd, migrateCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "roadmapctl:", err)
		os.Exit(1)
	}
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	return migrations.Apply(ctx, db)
}

func parseJSONObject(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
