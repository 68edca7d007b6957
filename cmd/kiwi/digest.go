package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kiwidesk/kiwi/internal/calendar"
	"github.com/kiwidesk/kiwi/internal/config"
	"github.com/kiwidesk/kiwi/internal/notify"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const digestCourses = 5

func newDigestCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Post the daily digest to chat webhooks",
		Long: `Builds a digest of overdue tasks, tasks due today and the next courses,
then posts it to every webhook under "notify" in the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, configPath, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Kiwi config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of posting it")
	return cmd
}

// digestJob holds what one digest run needs.
type digestJob struct {
	db        *gorm.DB
	cfg       *config.Config
	loc       *time.Location
	notifiers []notify.Notifier
	log       *slog.Logger
	out       io.Writer
	dryRun    bool
}

func runDigest(cmd *cobra.Command, configPath string, dryRun bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Hyperplanning.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	notifiers, err := buildNotifiers(cfg.Notify)
	if err != nil {
		return err
	}
	if len(notifiers) == 0 && !dryRun {
		return fmt.Errorf("no webhook configured (set notify.slack_webhook_url or notify.discord_webhook_url)")
	}

	job := &digestJob{
		db:        gormDB,
		cfg:       cfg,
		loc:       loc,
		notifiers: notifiers,
		log:       newLogger(cmd.ErrOrStderr(), false),
		out:       cmd.OutOrStdout(),
		dryRun:    dryRun,
	}

	return job.run(commandContext(cmd), time.Now())
}

func buildNotifiers(cfg config.NotifyConfig) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier
	if cfg.SlackWebhookURL != "" {
		s, err := notify.NewSlack(cfg.SlackWebhookURL)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, s)
	}
	if cfg.DiscordWebhookURL != "" {
		d, err := notify.NewDiscord(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, d)
	}
	return notifiers, nil
}

func (j *digestJob) run(ctx context.Context, now time.Time) error {
	d, err := notify.BuildDigest(j.db, now, j.loc)
	if err != nil {
		return err
	}
	if j.cfg.Hyperplanning.URL != "" {
		courses, err := j.nextCourses(ctx, now)
		if err != nil {
			j.log.Warn("digest: courses unavailable", "err", err)
		}
		d.Courses = courses
	}

	msg := d.Format()
	if j.dryRun {
		fmt.Fprintf(j.out, "%s\n\n%s\n", msg.Title, msg.Body)
		return nil
	}

	if err := notify.Broadcast(ctx, j.log, j.notifiers, msg); err != nil {
		return err
	}
	names := make([]string, len(j.notifiers))
	for i, n := range j.notifiers {
		names[i] = n.Name()
	}
	fmt.Fprintf(j.out, "Digest sent to %s\n", strings.Join(names, ", "))
	return nil
}

func (j *digestJob) nextCourses(ctx context.Context, now time.Time) ([]calendar.Course, error) {
	feed, err := calendar.NewFeed(calendar.FeedOpts{
		URL:       j.cfg.Hyperplanning.URL,
		Location:  j.loc,
		UserAgent: j.cfg.HTTP.UserAgent,
		Timeout:   j.cfg.HTTP.Timeout,
	})
	if err != nil {
		return nil, err
	}
	events, err := feed.Events(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.NextCourses(events, now, digestCourses), nil
}
