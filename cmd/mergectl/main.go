// mergectl is an operator CLI over the merge core. It talks to the database
// directly with the same service layer the server uses, so behavior is
// identical to the HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	configs "github.com/thatlq1812/identity-service/internal/configs"
	"github.com/thatlq1812/identity-service/internal/domain"
	"github.com/thatlq1812/identity-service/internal/repository"
	"github.com/thatlq1812/identity-service/internal/service"
)

var (
	workspaceID string
	actorName   string
)

func main() {
	root := &cobra.Command{
		Use:           "mergectl",
		Short:         "Inspect and merge duplicate workspace identity records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&workspaceID, "workspace", "w", "", "workspace id (required)")
	root.PersistentFlags().StringVar(&actorName, "actor", "mergectl", "actor recorded in the merge audit trail")
	_ = root.MarkPersistentFlagRequired("workspace")

	root.AddCommand(scanCmd(), previewCmd(), mergeCmd(), bulkCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env builds the service layer the way cmd/server does, minus the HTTP
// surface.
type env struct {
	scanner     *service.DuplicateScanner
	previewer   *service.MergePreviewer
	executor    *service.MergeExecutor
	coordinator *service.BulkMergeCoordinator
	close       func()
}

func buildEnv(ctx context.Context) (*env, error) {
	cfg, err := configs.Load()
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConn)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewPostgresWorkspaceUserRepository(pool)
	refRepo := repository.NewPostgresReferenceRepository(pool)
	store := repository.NewPostgresMergeStore(pool)
	executor := service.NewMergeExecutor(store, logger)

	return &env{
		scanner:     service.NewDuplicateScanner(userRepo, logger),
		previewer:   service.NewMergePreviewer(userRepo, refRepo, cfg.PreviewConcurrency, logger),
		executor:    executor,
		coordinator: service.NewBulkMergeCoordinator(executor, logger),
		close:       pool.Close,
	}, nil
}

func scanCmd() *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List duplicate groups in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			groups, err := e.scanner.ScanDuplicates(cmd.Context(), workspaceID, domain.ScanScope(field))
			if err != nil {
				return err
			}
			return printJSON(groups)
		},
	}
	cmd.Flags().StringVar(&field, "field", "all", "attribute to scan: all, email or phone")
	return cmd
}

func previewCmd() *cobra.Command {
	var keepID, deleteID string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the blast radius of one merge",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			preview, err := e.previewer.PreviewMerge(cmd.Context(), workspaceID, keepID, deleteID)
			if err != nil {
				return err
			}
			return printJSON(preview)
		},
	}
	cmd.Flags().StringVar(&keepID, "keep", "", "id of the surviving record")
	cmd.Flags().StringVar(&deleteID, "delete", "", "id of the record to merge away")
	_ = cmd.MarkFlagRequired("keep")
	_ = cmd.MarkFlagRequired("delete")
	return cmd
}

func mergeCmd() *cobra.Command {
	var keepID, deleteID, balance string
	var fieldOverrides []string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Execute one merge",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFieldOverrides(fieldOverrides)
			if err != nil {
				return err
			}

			e, err := buildEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			result, err := e.executor.ExecuteMerge(cmd.Context(), domain.MergeRequest{
				WorkspaceID:     workspaceID,
				KeepUserID:      keepID,
				DeleteUserID:    deleteID,
				FieldStrategy:   fields,
				BalanceStrategy: domain.BalanceStrategy(balance),
				Actor:           actorName,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&keepID, "keep", "", "id of the surviving record")
	cmd.Flags().StringVar(&deleteID, "delete", "", "id of the record to merge away")
	cmd.Flags().StringVar(&balance, "balance", "keep", "balance strategy: keep or add")
	cmd.Flags().StringArrayVar(&fieldOverrides, "field", nil, "field override, e.g. --field email=delete (repeatable)")
	_ = cmd.MarkFlagRequired("keep")
	_ = cmd.MarkFlagRequired("delete")
	return cmd
}

func bulkCmd() *cobra.Command {
	var pairSpecs []string
	var balance string
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Execute many merges sequentially with per-pair failure isolation",
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(pairSpecs)
			if err != nil {
				return err
			}

			e, err := buildEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			result, err := e.coordinator.ExecuteBulkMerge(cmd.Context(), workspaceID, pairs,
				domain.BalanceStrategy(balance), actorName)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringArrayVar(&pairSpecs, "pair", nil, "merge pair as keep:delete (repeatable)")
	cmd.Flags().StringVar(&balance, "balance", "keep", "balance strategy: keep or add")
	_ = cmd.MarkFlagRequired("pair")
	return cmd
}

func parseFieldOverrides(specs []string) (domain.FieldStrategy, error) {
	fields := make(domain.FieldStrategy, len(specs))
	for _, spec := range specs {
		name, choice, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid field override %q, want name=keep|delete", spec)
		}
		fields[domain.MergeField(name)] = domain.FieldChoice(choice)
	}
	return fields, nil
}

func parsePairs(specs []string) ([]domain.MergePair, error) {
	pairs := make([]domain.MergePair, 0, len(specs))
	for _, spec := range specs {
		keep, del, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q, want keep:delete", spec)
		}
		pairs = append(pairs, domain.MergePair{KeepUserID: keep, DeleteUserID: del})
	}
	return pairs, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
