package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"warden/internal/analytics"
	"warden/internal/moderation"

	cli "github.com/urfave/cli/v2"
)

var rulesCmd = &cli.Command{
	Name:  "rules",
	Usage: "list or change auto-mod rules",
	Subcommands: []*cli.Command{
		{
			Name:      "list",
			Usage:     "print the rules of a guild",
			ArgsUsage: "<guild-id>",
			Action: func(cctx *cli.Context) error {
				guildID := cctx.Args().First()
				if guildID == "" {
					return fmt.Errorf("guild id is required")
				}
				store, err := openStore(cctx)
				if err != nil {
					return err
				}
				defer store.Close()

				rules, err := adminEngine(store).GetRules(cctx.Context, guildID)
				if err != nil {
					return err
				}
				return printRules(cctx.App.Writer, rules)
			},
		},
		{
			Name:      "set",
			Usage:     "create or update one rule",
			ArgsUsage: "<guild-id> <rule-type>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "enabled", Value: true, Usage: "whether the rule is active"},
				&cli.StringFlag{Name: "action", Usage: "delete, warn, timeout or kick (empty keeps the detector default)"},
				&cli.IntFlag{Name: "threshold", Usage: "spam message count or caps percentage"},
				&cli.StringSliceFlag{Name: "word", Usage: "bad word, repeatable"},
			},
			Action: func(cctx *cli.Context) error {
				guildID := cctx.Args().Get(0)
				ruleType := cctx.Args().Get(1)
				if guildID == "" || ruleType == "" {
					return fmt.Errorf("guild id and rule type are required")
				}
				store, err := openStore(cctx)
				if err != nil {
					return err
				}
				defer store.Close()

				var threshold *int
				if cctx.IsSet("threshold") {
					value := cctx.Int("threshold")
					threshold = &value
				}
				var raw []byte
				if words := cctx.StringSlice("word"); len(words) > 0 {
					raw, err = moderation.EncodeConfig(moderation.BadWordsConfig{Words: words})
					if err != nil {
						return err
					}
				}

				rule, err := adminEngine(store).SetRule(cctx.Context, guildID, ruleType, cctx.Bool("enabled"), cctx.String("action"), threshold, raw)
				if err != nil {
					return err
				}
				return printRules(cctx.App.Writer, []moderation.Rule{rule})
			},
		},
	},
}

var violationsCmd = &cli.Command{
	Name:      "violations",
	Usage:     "print recent violations, newest first",
	ArgsUsage: "<guild-id>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 25, Usage: "number of entries, capped at 100"},
	},
	Action: func(cctx *cli.Context) error {
		guildID := cctx.Args().First()
		if guildID == "" {
			return fmt.Errorf("guild id is required")
		}
		store, err := openStore(cctx)
		if err != nil {
			return err
		}
		defer store.Close()

		violations, err := adminEngine(store).GetViolations(cctx.Context, guildID, cctx.Int("limit"))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cctx.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tUSER\tRULE\tACTION\tCONTENT")
		for _, v := range violations {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.CreatedAt.UTC().Format(time.RFC3339), v.UserID, v.RuleType, v.ActionTaken, oneLine(v.Content, 60))
		}
		return w.Flush()
	},
}

var reportCmd = &cli.Command{
	Name:      "report",
	Usage:     "summarise violations over a time window",
	ArgsUsage: "<guild-id>",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "since", Value: 24 * time.Hour, Usage: "look back this far"},
	},
	Action: func(cctx *cli.Context) error {
		guildID := cctx.Args().First()
		if guildID == "" {
			return fmt.Errorf("guild id is required")
		}
		store, err := openStore(cctx)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := analytics.New(store).Report(cctx.Context, guildID, time.Now().Add(-cctx.Duration("since")))
		if err != nil {
			return err
		}
		out := cctx.App.Writer
		fmt.Fprintf(out, "violations: %d\nusers: %d\n", report.Total, report.Users)
		for _, ruleType := range moderation.RuleOrder {
			fmt.Fprintf(out, "  %-10s %d\n", ruleType, report.ByRule[ruleType])
		}
		for _, action := range []string{"delete", "warn", "timeout", "kick"} {
			fmt.Fprintf(out, "  %-10s %d\n", action, report.ByAction[action])
		}
		return nil
	},
}

var premiumCmd = &cli.Command{
	Name:      "premium",
	Usage:     "show or set the premium tier of a guild",
	ArgsUsage: "<guild-id> [tier]",
	Action: func(cctx *cli.Context) error {
		guildID := cctx.Args().Get(0)
		if guildID == "" {
			return fmt.Errorf("guild id is required")
		}
		store, err := openStore(cctx)
		if err != nil {
			return err
		}
		defer store.Close()

		settings, err := store.GetGuildSettings(cctx.Context, guildID)
		if err != nil {
			return err
		}
		if tier := cctx.Args().Get(1); tier != "" {
			settings.PremiumTier = strings.ToLower(tier)
			if err := store.UpsertGuildSettings(cctx.Context, settings); err != nil {
				return err
			}
		}
		fmt.Fprintf(cctx.App.Writer, "%s tier=%s premium=%t\n", guildID, settings.PremiumTier, settings.Premium())
		return nil
	},
}

func printRules(out io.Writer, rules []moderation.Rule) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tENABLED\tACTION\tTHRESHOLD\tCONFIG")
	for _, rule := range rules {
		threshold := "-"
		if rule.Threshold != nil {
			threshold = fmt.Sprintf("%d", *rule.Threshold)
		}
		action := rule.Action
		if action == "" {
			action = "-"
		}
		config := "-"
		if cfg, ok := rule.BadWords(); ok {
			config = strings.Join(cfg.Words, ",")
		} else if rule.Type == moderation.RuleBadWords {
			config = "invalid"
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n", rule.Type, rule.Enabled, action, threshold, config)
	}
	return w.Flush()
}

func oneLine(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) > limit {
		return string(runes[:limit-3]) + "..."
	}
	return value
}
