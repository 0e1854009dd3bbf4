package cmd

import (
	"encoding/base64"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ukpostcode/internal/core/auth"
	"github.com/solatis/ukpostcode/internal/core/config"
	"github.com/solatis/ukpostcode/internal/core/db"
	"github.com/solatis/ukpostcode/internal/types"
)

var (
	apiKeyTenant string
	apiKeyName   string
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage lookup API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue an API key for a tenant",
	Long: `Issue an API key for a tenant. The key is printed once; only its
HMAC is stored. Keys are signed with the newest secret in
UKPC_HMAC_SECRET / UKPC_HMAC_SECRET_N.`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

var apiKeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's API keys",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyList,
}

var apiKeySecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a value for UKPC_HMAC_SECRET",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeySecret,
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyRevokeCmd, apiKeyListCmd, apiKeySecretCmd)

	apiKeyCreateCmd.Flags().StringVar(&apiKeyTenant, "tenant", "", "tenant the key belongs to")
	apiKeyCreateCmd.Flags().StringVar(&apiKeyName, "name", "", "label for the key")
	_ = apiKeyCreateCmd.MarkFlagRequired("tenant")

	apiKeyListCmd.Flags().StringVar(&apiKeyTenant, "tenant", "", "tenant whose keys to list")
	_ = apiKeyListCmd.MarkFlagRequired("tenant")
}

// openKeyStore opens the database and checks the schema is current.
func openKeyStore() (*db.APIKeyStore, func(), error) {
	database, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}
	if err := db.RequireMigrations(database); err != nil {
		database.Close()
		return nil, nil, err
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return db.NewAPIKeyStore(queries), func() { database.Close() }, nil
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return failed(err)
	}

	store, closeDB, err := openKeyStore()
	if err != nil {
		return failed(err)
	}
	defer closeDB()

	issuer, err := auth.NewIssuer(secrets, store)
	if err != nil {
		return failed(fmt.Errorf("%w (set %s_HMAC_SECRET)", err, config.EnvPrefix))
	}

	apiKey, record, err := issuer.Issue(cmdContext(cmd), apiKeyTenant, apiKeyName)
	if err != nil {
		return failed(err)
	}

	logger.Info("api key issued",
		zap.String("api_key_id", string(record.ID)),
		zap.String("tenant_id", record.TenantID),
		zap.String("secret_id", record.SecretID))
	fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", record.ID, apiKey)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openKeyStore()
	if err != nil {
		return failed(err)
	}
	defer closeDB()

	if err := store.Revoke(cmdContext(cmd), types.APIKeyID(args[0])); err != nil {
		return failed(fmt.Errorf("revoke %s: %w", args[0], err))
	}
	logger.Info("api key revoked", zap.String("api_key_id", args[0]))
	return nil
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openKeyStore()
	if err != nil {
		return failed(err)
	}
	defer closeDB()

	keys, err := store.ListByTenant(cmdContext(cmd), apiKeyTenant)
	if err != nil {
		return failed(err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED\tREVOKED")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.ID, k.Name,
			k.CreatedAt.UTC().Format(time.RFC3339), formatNullTime(k.LastUsedAt.Valid, k.LastUsedAt.Time),
			formatNullTime(k.RevokedAt.Valid, k.RevokedAt.Time))
	}
	return failed(w.Flush())
}

func formatNullTime(valid bool, t time.Time) string {
	if !valid {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func runAPIKeySecret(cmd *cobra.Command, args []string) error {
	secret, err := auth.GenerateSecret()
	if err != nil {
		return failed(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", types.NewSecretID(), base64.StdEncoding.EncodeToString(secret))
	return nil
}
