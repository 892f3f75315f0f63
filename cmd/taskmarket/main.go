package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskmarket/internal/actor"
	"github.com/kazz187/taskmarket/internal/pricing"
	"github.com/kazz187/taskmarket/internal/store/kvstore"
	"github.com/kazz187/taskmarket/internal/task"
	"github.com/kazz187/taskmarket/internal/workflow"
	"github.com/kazz187/taskmarket/pkg/storage"
)

var (
	app = kingpin.New("taskmarket", "Post tasks, bid on them and settle them from the command line")

	dataDir   = app.Flag("data-dir", "Directory holding task and offer records").Envar("TASKMARKET_STORAGE_BASE_DIR").Default(".taskmarket/data").String()
	actorID   = app.Flag("actor", "Acting user ID").Envar("TASKMARKET_ACTOR").Required().String()
	actorRole = app.Flag("role", "Acting user role (worker or employer)").Envar("TASKMARKET_ROLE").Required().String()

	// Task commands
	taskCmd = app.Command("task", "Task commands")

	createCmd         = taskCmd.Command("create", "Create a new task")
	createTitle       = createCmd.Arg("title", "Task title").Required().String()
	createBudget      = createCmd.Flag("budget", "Budget, e.g. 1200 or \"1,200\"").Required().String()
	createDescription = createCmd.Flag("description", "Task description").String()
	createLocation    = createCmd.Flag("location", "Where the work happens").String()
	createCategory    = createCmd.Flag("category", "Category ID").Int()

	listCmd    = taskCmd.Command("list", "List open tasks")
	listSearch = listCmd.Flag("q", "Search title and description").String()
	listSort   = listCmd.Flag("sort", "Sort key: date, price or title").Default("date").String()
	listDir    = listCmd.Flag("dir", "Sort direction: asc or desc").String()

	mineCmd = taskCmd.Command("mine", "List tasks you authored or were assigned")

	showCmd     = taskCmd.Command("show", "Show a task with the actions available to you")
	showID      = showCmd.Arg("id", "Task ID").Required().String()
	showPending = showCmd.Flag("pending", "Unsaved budget edit to price the task with").String()

	editCmd    = taskCmd.Command("edit", "Edit an open task")
	editID     = editCmd.Arg("id", "Task ID").Required().String()
	editTitle  = editCmd.Flag("title", "New title").String()
	editBudget = editCmd.Flag("budget", "New budget").String()

	deleteCmd = taskCmd.Command("delete", "Delete an open task and its offers")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()

	doneCmd = taskCmd.Command("done", "Mark an assigned task done")
	doneID  = doneCmd.Arg("id", "Task ID").Required().String()

	payCmd = taskCmd.Command("pay", "Pay for a task marked done")
	payID  = payCmd.Arg("id", "Task ID").Required().String()

	unassignCmd = taskCmd.Command("unassign", "Reopen an assigned task")
	unassignID  = unassignCmd.Arg("id", "Task ID").Required().String()

	// Offer commands
	offerCmd = app.Command("offer", "Offer commands")

	submitCmd    = offerCmd.Command("submit", "Bid on an open task")
	submitTask   = submitCmd.Arg("task", "Task ID").Required().String()
	submitAmount = submitCmd.Arg("amount", "Offered amount").Required().String()

	acceptCmd   = offerCmd.Command("accept", "Accept an offer on your task")
	acceptTask  = acceptCmd.Arg("task", "Task ID").Required().String()
	acceptOffer = acceptCmd.Arg("offer", "Offer ID").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, out io.Writer) error {
	role, err := actor.ParseRole(*actorRole)
	if err != nil {
		return err
	}
	a := actor.Actor{ID: *actorID, Role: role}

	blobs, err := storage.NewLocalStorage(*dataDir)
	if err != nil {
		return err
	}
	engine := workflow.NewEngine(kvstore.New(blobs))

	var result any
	switch command {
	case createCmd.FullCommand():
		budget, err := pricing.ParseAmount(*createBudget)
		if err != nil {
			return err
		}
		result, err = engine.CreateTask(ctx, a, task.Fields{
			Title:       *createTitle,
			Description: *createDescription,
			CategoryID:  *createCategory,
			Budget:      budget,
			Location:    *createLocation,
		})
		if err != nil {
			return err
		}
	case listCmd.FullCommand():
		s, err := task.ParseSort(*listSort, *listDir)
		if err != nil {
			return err
		}
		result, err = engine.ListOpen(ctx, task.Filter{Search: *listSearch}, s)
		if err != nil {
			return err
		}
	case mineCmd.FullCommand():
		result, err = engine.ListMine(ctx, a, task.Filter{}, task.Sort{})
	case showCmd.FullCommand():
		var pending *int64
		if *showPending != "" {
			v, err := pricing.ParseAmount(*showPending)
			if err != nil {
				return err
			}
			pending = &v
		}
		result, err = engine.View(ctx, a, *showID, pending)
	case editCmd.FullCommand():
		var p task.Patch
		if *editTitle != "" {
			p.Title = editTitle
		}
		if *editBudget != "" {
			v, err := pricing.ParseAmount(*editBudget)
			if err != nil {
				return err
			}
			p.Budget = &v
		}
		result, err = engine.UpdateTask(ctx, a, *editID, p)
	case deleteCmd.FullCommand():
		err = engine.DeleteTask(ctx, a, *deleteID)
		result = map[string]string{"deleted": *deleteID}
	case doneCmd.FullCommand():
		result, err = engine.MarkDone(ctx, a, *doneID)
	case payCmd.FullCommand():
		result, err = engine.Pay(ctx, a, *payID)
	case unassignCmd.FullCommand():
		result, err = engine.Unassign(ctx, a, *unassignID)
	case submitCmd.FullCommand():
		amount, err := pricing.ParseAmount(*submitAmount)
		if err != nil {
			return err
		}
		result, err = engine.SubmitOffer(ctx, a, *submitTask, amount)
		if err != nil {
			return err
		}
	case acceptCmd.FullCommand():
		result, err = engine.AcceptOffer(ctx, a, *acceptTask, *acceptOffer)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(result)
}
