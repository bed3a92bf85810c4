package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gooddata-labs/affected/internal/diag"
	"github.com/gooddata-labs/affected/internal/discover"
	"github.com/gooddata-labs/affected/internal/logging"
	"github.com/gooddata-labs/affected/internal/orchestrator"
	"github.com/gooddata-labs/affected/internal/vcsdiff"
	"github.com/gooddata-labs/affected/internal/workspace"
	"github.com/gooddata-labs/affected/internal/wsconfig"
)

var (
	analyzeRoot         string
	analyzeConfig       string
	analyzeBranch       string
	analyzeAll          bool
	analyzeJSON         bool
	analyzeLog          bool
	analyzeDebug        bool
	analyzeIncludeTypes bool
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report which projects are affected by the current diff",
		RunE:  runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeRoot, "root", ".", "workspace root directory")
	cmd.Flags().StringVar(&analyzeConfig, "config", "", "path to a workspace config file (yaml or json)")
	cmd.Flags().StringVar(&analyzeBranch, "branch", "main", "base branch to diff against")
	cmd.Flags().BoolVar(&analyzeAll, "all", false, "skip the diff and report every project as affected")
	cmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit JSON instead of plain text")
	cmd.Flags().BoolVar(&analyzeLog, "log", false, "print phase-level progress to stderr")
	cmd.Flags().BoolVar(&analyzeDebug, "debug", false, "print verbose tracing to stderr and include a structured report (implies --log)")
	cmd.Flags().BoolVar(&analyzeIncludeTypes, "include-types", false, "treat type-only symbol changes (interfaces, type aliases) as affecting")

	return cmd
}

// analyzeOutput is the --json payload shape.
type analyzeOutput struct {
	Projects    []string             `json:"projects"`
	Diagnostics []diag.Diagnostic    `json:"diagnostics,omitempty"`
	Report      *orchestrator.Report `json:"report,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(analyzeRoot)
	if err != nil {
		return newExitError(1, fmt.Errorf("resolving --root: %w", err))
	}

	logger := logging.New(analyzeLog, analyzeDebug)

	var cfg *wsconfig.Config
	if analyzeConfig != "" {
		cfg, err = wsconfig.Load(analyzeConfig)
		if err != nil {
			return newExitError(1, err)
		}
	} else {
		cfg = &wsconfig.Config{WorkspaceRoot: root, DefaultBranch: analyzeBranch, IncludeTypes: analyzeIncludeTypes}
	}

	logger.Logf("discovering workspace projects under %s", root)
	discoverer := discover.Auto(root)
	projects, err := discoverer.Discover(root)
	if err != nil {
		return newExitError(2, fmt.Errorf("discovering projects: %w", err))
	}
	logger.Debugf("discovered %d projects", len(projects))

	opts := orchestrator.Options{
		Projects:      projects,
		WorkspaceRoot: root,
		AliasMap:      cfg.AliasMap,
		IncludeTypes:  analyzeIncludeTypes || cfg.IncludeTypes,
		All:           analyzeAll,
		Debug:         analyzeDebug,
	}

	if !analyzeAll {
		vcs := vcsdiff.New(root)
		branch := analyzeBranch
		if branch == "" {
			branch = cfg.DefaultBranch
		}
		base, err := vcs.MergeBase(branch)
		if err != nil {
			return newExitError(2, fmt.Errorf("finding merge base against %s: %w", branch, err))
		}
		logger.Debugf("diffing against merge base %s", base)
		diffText, err := vcs.DiffSince(base)
		if err != nil {
			return newExitError(2, fmt.Errorf("reading diff: %w", err))
		}
		opts.DiffText = diffText
	}

	progress := logging.NewProgress("parsing workspace", totalSourceFileEstimate(projects), analyzeLog && !analyzeJSON)
	result, err := orchestrator.Run(context.Background(), opts)
	progress.Finish()
	if err != nil {
		return newExitError(2, err)
	}

	for _, d := range result.Diagnostics {
		logger.Warnf("%s: %s (%s)", d.Kind, d.File, d.Detail)
	}

	return writeResult(cmd, result)
}

func totalSourceFileEstimate(projects []workspace.Project) int {
	return len(projects)
}

func writeResult(cmd *cobra.Command, result *orchestrator.Result) error {
	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(analyzeOutput{
			Projects:    result.Projects,
			Diagnostics: result.Diagnostics,
			Report:      result.Report,
		})
	}
	for _, p := range result.Projects {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
