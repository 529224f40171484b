package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"viralops/manager-go/internal/channels"
	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/policy"
	"viralops/manager-go/internal/utils"
)

func runPolicyCheck(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("policy:check", flag.ContinueOnError)
	title := fs.String("title", "", "Content title")
	description := fs.String("description", "", "Content description")
	scriptFile := fs.String("script-file", "", "Path to the script text")
	channel := fs.String("channel", "", "Channel id whose content_policy rules apply")
	contentID := fs.String("id", "", "Content id; when set the result is stored")
	coppa := fs.Bool("coppa", false, "Content is declared made-for-kids")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if *title == "" && *description == "" && *scriptFile == "" {
		return fmt.Errorf("nothing to check: provide --title, --description or --script-file")
	}

	var script string
	if *scriptFile != "" {
		b, err := os.ReadFile(*scriptFile)
		if err != nil {
			return err
		}
		script = string(b)
	}

	rules := policy.Rules{}
	if *channel != "" {
		mgr, err := channels.NewManager(cfg.ChannelsDir)
		if err != nil {
			return err
		}
		channelCfg, err := mgr.Get(*channel)
		if err != nil {
			return err
		}
		rules = policy.RulesFromPolicy(channelCfg.Compliance.ContentPolicy)
	}

	checker := policy.NewChecker(cfg.PolicyPassThreshold)
	result := checker.Check(policy.Content{
		ID:            *contentID,
		Title:         *title,
		Description:   *description,
		Script:        script,
		CoppaDeclared: *coppa,
	}, rules)
	printJSON(result)

	if *contentID != "" {
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := saveComplianceResult(ctx, st, result); err != nil {
			return err
		}
		utils.Info("compliance result stored", "content_id", *contentID)
	}

	if !result.Compliant {
		return fmt.Errorf("content failed compliance (score %.1f)", result.OverallScore)
	}
	return nil
}

func runPolicyStats(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("policy:stats", flag.ContinueOnError)
	recent := fs.Int("recent", 10, "Number of recent results to list")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.ComplianceStatistics(ctx)
	if err != nil {
		return err
	}
	printJSON(stats)

	results, err := st.ListComplianceResults(ctx, *recent)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%-32s score=%5.1f compliant=%-5t violations=%d\n",
			r.ContentID, r.OverallScore, r.IsCompliant, len(r.Violations))
	}
	return nil
}
