package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"github.com/boristopalov/cvrpq/internal/vrpfile"
	"github.com/boristopalov/cvrpq/pkg/agent"
	"github.com/boristopalov/cvrpq/pkg/config"
	"github.com/boristopalov/cvrpq/pkg/core"
	"github.com/boristopalov/cvrpq/pkg/cvrp"
	"github.com/boristopalov/cvrpq/pkg/environment"
	"github.com/boristopalov/cvrpq/pkg/experiment"
	"github.com/boristopalov/cvrpq/pkg/messaging"
	"github.com/boristopalov/cvrpq/pkg/plot"
)

var (
	flagConfig   string
	flagInstance string
	flagSolution string
	flagReport   string
	flagEpisodes int
	flagSeed     int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cvrpq",
		Short: "cvrpq trains a tabular Q-learning agent to construct capacitated vehicle routes and compares the result against a known-optimal reference.",
	}

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "Train on a TSPLIB-style .vrp instance",
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVar(&flagConfig, "config", "", "YAML experiment config")
	solveCmd.Flags().StringVar(&flagInstance, "instance", "", "path to the .vrp instance (or CVRPQ_INSTANCE)")
	solveCmd.Flags().StringVar(&flagSolution, "solution", "", "path to the reference .sol file (or CVRPQ_SOLUTION)")
	solveCmd.Flags().StringVar(&flagReport, "report", "", "path for the HTML report")
	solveCmd.Flags().IntVar(&flagEpisodes, "episodes", 0, "override the number of training episodes")
	solveCmd.Flags().Int64Var(&flagSeed, "seed", 0, "deterministic RNG seed (0 = time-based)")

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(solveCmd)
	rootCmd.Execute()
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inst, err := vrpfile.LoadInstance(cfg.InstancePath)
	if err != nil {
		return fmt.Errorf("failed to load instance: %v", err)
	}
	log.Printf("Loaded instance %s: %d customers, capacity %.0f", inst.Name, len(inst.Customers()), inst.Capacity)

	if cfg.SolutionPath != "" {
		ref, err := vrpfile.LoadSolution(cfg.SolutionPath, inst.DepotID)
		if err != nil {
			return fmt.Errorf("failed to load reference solution: %v", err)
		}
		inst.Reference = ref
		log.Printf("Loaded reference solution: %d routes, distance %.2f", len(ref.Routes), ref.Distance)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	env := environment.NewCVRPEnv(inst)

	agentOpts := []agent.AgentOption{
		agent.WithLearningRate(cfg.Training.LearningRate),
		agent.WithDiscountFactor(cfg.Training.DiscountFactor),
		agent.WithEpsilon(cfg.Training.Epsilon),
		agent.WithEpsilonDecay(cfg.Training.EpsilonDecay),
		agent.WithEpsilonMin(cfg.Training.EpsilonMin),
	}
	if cfg.Training.Seed != 0 {
		agentOpts = append(agentOpts, agent.WithSeed(cfg.Training.Seed))
	}
	a, err := agent.NewQLearningAgent(agentOpts...)
	if err != nil {
		return fmt.Errorf("failed to create agent: %v", err)
	}

	broker := messaging.NewBroker()
	defer broker.Reset()
	events := make(chan messaging.Event, 64)
	if err := broker.Subscribe("console", events); err != nil {
		return fmt.Errorf("failed to subscribe reporter: %v", err)
	}
	done := make(chan struct{})
	go reportProgress(events, done)

	exp := experiment.NewTrainingExperiment(cfg.Name, cfg.Training, env, a,
		experiment.WithBroker(broker),
		experiment.WithReference(inst.Reference),
	)
	log.Printf("Starting %s (%d episodes)", exp.RunID(), cfg.Training.Episodes)

	if err := exp.Run(ctx); err != nil {
		return fmt.Errorf("training failed: %v", err)
	}
	close(events)
	<-done

	return report(exp, a, inst, cfg)
}

func loadConfig() (*config.ExperimentConfig, error) {
	cfg := config.DefaultConfig()
	if flagConfig != "" {
		loaded, err := config.LoadConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flagInstance != "" {
		cfg.InstancePath = flagInstance
	} else if cfg.InstancePath == "" {
		cfg.InstancePath = os.Getenv("CVRPQ_INSTANCE")
	}
	if flagSolution != "" {
		cfg.SolutionPath = flagSolution
	} else if cfg.SolutionPath == "" {
		cfg.SolutionPath = os.Getenv("CVRPQ_SOLUTION")
	}
	if flagReport != "" {
		cfg.ReportPath = flagReport
	}
	if flagEpisodes > 0 {
		cfg.Training.Episodes = flagEpisodes
	}
	if flagSeed != 0 {
		cfg.Training.Seed = flagSeed
	}

	if cfg.InstancePath == "" {
		return nil, fmt.Errorf("no instance given: use --instance or CVRPQ_INSTANCE")
	}
	return cfg, nil
}

func reportProgress(events <-chan messaging.Event, done chan<- struct{}) {
	defer close(done)
	for evt := range events {
		result, ok := evt.Payload.(core.EpisodeResult)
		if !ok {
			continue
		}
		switch evt.Type {
		case messaging.EventEpisode:
			best := "none"
			if result.BestDistance > 0 {
				best = fmt.Sprintf("%.2f", result.BestDistance)
			}
			fmt.Printf("%s reward=%8.2f epsilon=%.3f best=%s\n",
				aurora.Blue(fmt.Sprintf("episode %5d", result.Episode)),
				result.Reward, result.Epsilon, aurora.Green(best))
		case messaging.EventSummary:
			fmt.Println(aurora.Yellow(fmt.Sprintf("training complete after %d episodes", result.Episode)))
		}
	}
}

func report(exp *experiment.TrainingExperiment, a *agent.QLearningAgent, inst *cvrp.Instance, cfg *config.ExperimentConfig) error {
	best, ok := exp.Result()
	if !ok {
		fmt.Println(aurora.Red("no valid solution found; try more episodes"))
		return nil
	}

	for i, route := range best.Routes {
		fmt.Printf("Route %d: %v (demand %.0f)\n", i+1, route, routeDemand(inst, route))
	}
	fmt.Println(aurora.Green(fmt.Sprintf("Best distance: %.2f (%d routes)", best.Distance, len(best.Routes))))

	if gap, ok := exp.Gap(); ok {
		fmt.Println(aurora.Cyan(fmt.Sprintf("Gap vs reference: %.2f%%", gap)))
	}

	stats := a.GetStatistics()
	log.Printf("Agent stats: epsilon=%.3f actions=%d states=%d", stats.Epsilon, stats.TotalActions, stats.QTableSize)

	if cfg.ReportPath != "" {
		if err := plot.WriteReport(cfg.ReportPath, inst, best, inst.Reference, exp.History()); err != nil {
			return fmt.Errorf("failed to write report: %v", err)
		}
		log.Printf("Report written to %s", cfg.ReportPath)
	}
	return nil
}

func routeDemand(inst *cvrp.Instance, route []int) float64 {
	total := 0.0
	for _, node := range route {
		total += inst.Demand(node)
	}
	return total
}
