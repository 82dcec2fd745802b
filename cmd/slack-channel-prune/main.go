package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/ericzzh/slack-channel-prune/internal/app"
	"github.com/ericzzh/slack-channel-prune/internal/report"
	"github.com/ericzzh/slack-channel-prune/internal/slackstore"
)

const tokenEnvVar = "SLACK_API_TOKEN"

var (
	flagDomains      []string
	flagDays         int
	flagLive         bool
	flagJoinChannels bool
	flagExclude      []string
	flagPolicy       string
	flagCSV          string
	flagJSON         string
	flagVerbose      bool
)

func init() {
	RootCmd.Flags().StringSliceVar(&flagDomains, "email-domains", nil, "archive channels whose members all belong to these email domains")
	RootCmd.Flags().IntVar(&flagDays, "days", 0, "archive channels with no activity for more than this many days")
	RootCmd.Flags().BoolVar(&flagLive, "live", false, "actually archive, the default is a dry run")
	RootCmd.Flags().BoolVar(&flagJoinChannels, "join-channels", false, "join channels whose history the token cannot read")
	RootCmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "channel names that are never archived")
	RootCmd.Flags().StringVar(&flagPolicy, "policy", "", "path to a YAML policy file, explicit flags override its values")
	RootCmd.Flags().StringVar(&flagCSV, "csv", "", "write per-channel results to this CSV file")
	RootCmd.Flags().StringVar(&flagJSON, "json", "", "write the full result to this JSON file")
	RootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log debug detail and print kept channels")
}

var RootCmd = &cobra.Command{
	Use:   "slack-channel-prune [api-token]",
	Short: "archive orphaned and inactive public channels",
	Args:  cobra.MaximumNArgs(1),
	RunE:  pruneCmdF,
}

func Run(args []string) error {
	RootCmd.SetArgs(args)
	return RootCmd.Execute()
}

func pruneCmdF(command *cobra.Command, args []string) error {
	logger := newLogger(flagVerbose)

	token, err := resolveToken(args, logger)
	if err != nil {
		return err
	}

	pol, err := buildPolicy(command)
	if err != nil {
		return err
	}

	announce(pol, logger)

	store := slackstore.New(slack.New(token), logger.WithField("component", "slackstore"))

	ctx := context.Background()

	ident, err := store.AuthTest(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to authenticate with the workspace")
	}
	logger.Infof("authenticated as %s in team %s", ident.User, ident.Team)

	directory := app.NewDirectory(store, logger.WithField("component", "directory"))
	svc := app.NewArchiveService(pol, store, directory, logger.WithField("component", "archive"))

	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	report.Console(os.Stdout, res, flagVerbose)

	if flagCSV != "" {
		if err := writeFile(flagCSV, func(w io.Writer) error { return report.WriteCSV(w, res) }); err != nil {
			return err
		}
		logger.Infof("wrote CSV report to %s", flagCSV)
	}
	if flagJSON != "" {
		if err := writeFile(flagJSON, func(w io.Writer) error { return report.WriteJSON(w, res) }); err != nil {
			return err
		}
		logger.Infof("wrote JSON report to %s", flagJSON)
	}

	return nil
}

func newLogger(verbose bool) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log.WithField("app", "slack-channel-prune")
}

// resolveToken prefers the positional argument over the environment.
func resolveToken(args []string, logger *logrus.Entry) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if token := os.Getenv(tokenEnvVar); token != "" {
		logger.Infof("using api token from %s", tokenEnvVar)
		return token, nil
	}
	return "", errors.Errorf("an api token is required, pass it as the first argument or set %s", tokenEnvVar)
}

// buildPolicy folds the optional policy file under the command line flags
// and validates the merge.
func buildPolicy(command *cobra.Command) (app.Policy, error) {
	in := app.PolicyInput{
		Domains:      flagDomains,
		Days:         flagDays,
		Live:         flagLive,
		JoinChannels: flagJoinChannels,
		Exclude:      flagExclude,
	}

	if flagPolicy != "" {
		file, err := app.LoadPolicyFile(flagPolicy)
		if err != nil {
			return app.Policy{}, errors.Wrapf(err, "failed to load policy file %s", flagPolicy)
		}
		in = overlay(in, file, command)
	}

	return app.NewPolicy(in)
}

// overlay fills in policy file values for every flag the user did not set
// explicitly.
func overlay(in app.PolicyInput, file *app.PolicyFile, command *cobra.Command) app.PolicyInput {
	flags := command.Flags()

	if !flags.Changed("email-domains") && len(file.EmailDomains) > 0 {
		in.Domains = file.EmailDomains
	}
	if !flags.Changed("days") && file.Days != nil {
		in.Days = *file.Days
	}
	if !flags.Changed("live") && file.Live != nil {
		in.Live = *file.Live
	}
	if !flags.Changed("join-channels") && file.JoinChannels != nil {
		in.JoinChannels = *file.JoinChannels
	}
	if !flags.Changed("exclude") && len(file.Exclude) > 0 {
		in.Exclude = file.Exclude
	}
	return in
}

func announce(pol app.Policy, logger *logrus.Entry) {
	if pol.Live {
		logger.Infof("running live, matching channels will be archived")
	} else {
		logger.Infof("running dry, no channel will be archived")
	}
	if len(pol.Domains) > 0 {
		logger.Infof("archiving channels whose members are all in: %s", strings.Join(pol.Domains, ", "))
	}
	if pol.Threshold > 0 {
		logger.Infof("archiving channels with no activity for more than %d days", int(pol.Threshold.Hours()/24))
	}
	if len(pol.Domains) == 0 && pol.Threshold == 0 {
		logger.Warnf("no archive rule is enabled, every channel will be kept")
	}
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()

	if werr := write(f); werr != nil {
		return errors.Wrapf(werr, "failed to write %s", path)
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	if err := Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
