package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"

	"viralops/manager-go/internal/channels"
	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/utils"
)

func runChannelList(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("channel:list", flag.ContinueOnError)
	platform := fs.String("platform", "", "Only channels with this platform enabled")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	mgr, err := channels.NewManager(cfg.ChannelsDir)
	if err != nil {
		return err
	}

	var configs map[string]*channels.Config
	if *platform != "" {
		configs, err = mgr.ByPlatform(*platform)
	} else {
		configs, err = mgr.All()
	}
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := configs[id]
		fmt.Printf("%-24s %-32s priority=%-7s platforms=%s\n",
			id, c.ChannelName, c.QueuePriority(), strings.Join(c.EnabledPlatforms(), ","))
	}

	summary, err := mgr.Summary()
	if err != nil {
		return err
	}
	fmt.Printf("%d channels in %s\n", summary.TotalChannels, summary.Directory)
	return nil
}

func runChannelValidate(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("channel:validate", flag.ContinueOnError)
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	mgr, err := channels.NewManager(cfg.ChannelsDir)
	if err != nil {
		return err
	}

	var ids []string
	if len(fs.Args()) > 0 {
		ids = fs.Args()
	} else {
		configs, err := mgr.All()
		if err != nil {
			return err
		}
		for id := range configs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	failed := 0
	for _, id := range ids {
		v, err := mgr.Validate(id)
		if err != nil {
			return err
		}
		for _, msg := range v.Errors {
			fmt.Printf("%s: error: %s\n", id, msg)
		}
		for _, msg := range v.Warnings {
			fmt.Printf("%s: warning: %s\n", id, msg)
		}
		if !v.OK() {
			failed++
		} else if len(v.Warnings) == 0 {
			fmt.Printf("%s: ok\n", id)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d channel(s) failed validation", failed)
	}
	return nil
}

func runChannelTemplate(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("channel:template", flag.ContinueOnError)
	platform := fs.String("platform", "youtube", "Platform to enable in the template")
	niche := fs.String("niche", "general", "Content niche")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("usage: channel:template <channel_id> [--platform=] [--niche=]")
	}

	mgr, err := channels.NewManager(cfg.ChannelsDir)
	if err != nil {
		return err
	}
	path, err := mgr.CreateTemplate(fs.Args()[0], *platform, *niche)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
