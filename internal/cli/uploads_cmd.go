package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/tasks"
	"viralops/manager-go/internal/uploads"
	"viralops/manager-go/internal/utils"
)

func splitCSV(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runUploadSchedule(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("upload:schedule", flag.ContinueOnError)
	channel := fs.String("channel", "", "Channel id")
	video := fs.String("video", "", "Path to the video file")
	title := fs.String("title", "", "Video title")
	description := fs.String("description", "", "Video description")
	tagsFlag := fs.String("tags", "", "Comma-separated tags")
	thumbnail := fs.String("thumbnail", "", "Path to a thumbnail image")
	category := fs.String("category", cfg.YouTubeCategoryID, "YouTube category id")
	privacy := fs.String("privacy", cfg.YouTubePrivacy, "Privacy status")
	publishAt := fs.String("publish-at", "", "Scheduled publish time, RFC3339")
	queueFlag := fs.Bool("queue", false, "Also enqueue an upload:process task")
	lane := fs.String("lane", tasks.LaneMedium, "Lane for the queued task")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	req := uploads.ScheduleRequest{
		ChannelID:     *channel,
		VideoPath:     *video,
		ThumbnailPath: *thumbnail,
		Title:         *title,
		Description:   *description,
		Tags:          splitCSV(*tagsFlag),
		CategoryID:    *category,
		PrivacyStatus: *privacy,
	}
	if *publishAt != "" {
		t, err := time.Parse(time.RFC3339, *publishAt)
		if err != nil {
			return fmt.Errorf("invalid --publish-at: %w", err)
		}
		req.PublishAt = &t
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	upMgr := uploads.NewManager(st, nil, 0)
	id, err := upMgr.Schedule(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("upload %d scheduled\n", id)

	if *queueFlag {
		backend, err := newBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()
		taskMgr := tasks.NewManager(backend, cfg.Hostname)
		taskID, err := taskMgr.Enqueue(ctx, "upload:process",
			map[string]int64{"upload_id": id}, tasks.Options{Lane: *lane})
		if err != nil {
			return err
		}
		fmt.Printf("task %s enqueued on %s\n", taskID, *lane)
	}
	return nil
}

func runUploadProcess(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("upload:process", flag.ContinueOnError)
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("usage: upload:process <upload_id>")
	}
	id, err := strconv.ParseInt(fs.Args()[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid upload_id: %s", fs.Args()[0])
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	uploader, err := newUploader(cfg)
	if err != nil {
		return err
	}
	return uploads.NewManager(st, uploader, 0).Process(ctx, id)
}

func runUploadBatch(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("upload:batch", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "Maximum uploads to process")
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

	uploader, err := newUploader(cfg)
	if err != nil {
		return err
	}

	processed, failed, err := uploads.NewManager(st, uploader, 0).ProcessDue(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Printf("processed %d, failed %d\n", processed, failed)
	return nil
}

func runUploadStats(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("upload:stats", flag.ContinueOnError)
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

	stats, err := uploads.NewManager(st, nil, 0).Statistics(ctx)
	if err != nil {
		return err
	}
	printJSON(stats)
	return nil
}
