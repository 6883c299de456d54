package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/auth"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	tokenTTL  time.Duration
	tokenHash bool
)

var tokenCmd = &cobra.Command{
	Use:   "token [worker-name]",
	Short: "Issue a worker credential",
	Long: `Issue a worker credential.

With --hash a random shared token is generated and printed together with the bcrypt hash to put in
worker.apitokenhash. Otherwise a JWT for the named worker is signed with worker.jwtsecretkey.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if tokenHash {
			raw := make([]byte, 32)
			if _, err := rand.Read(raw); err != nil {
				return err
			}
			token := hex.EncodeToString(raw)
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "token: %s\nhash:  %s\n", token, hash)
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("worker name is required for a JWT")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Worker.JwtSecretKey == "" {
			return fmt.Errorf("worker.jwtsecretkey is not set")
		}
		token, err := utils.GenerateWorkerToken(args[0], cfg.Worker.JwtSecretKey, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")
	tokenCmd.Flags().BoolVar(&tokenHash, "hash", false, "generate a shared token and its bcrypt hash instead of a JWT")
	rootCmd.AddCommand(tokenCmd)
}
