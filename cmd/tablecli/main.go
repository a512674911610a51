package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/formgrid/formgrid-backend/pkg/listview"
)

// tablecli is an interactive console client for the FormGrid listing API.
// It drives the same list controller a graphical frontend would.
func main() {
	baseURL := flag.String("server", "http://localhost:5002", "FormGrid backend base URL")
	infinite := flag.Bool("infinite", false, "use infinite-scroll accumulation instead of windowed pages")
	flag.Parse()

	mode := listview.ModePaginated
	if *infinite {
		mode = listview.ModeInfinite
	}

	client := listview.NewClient(*baseURL)
	controller := listview.NewController(client, listview.WithMode(mode))
	defer controller.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller.Mount(ctx)
	waitSettled(controller)
	render(controller)

	fmt.Println(`commands: next | prev | page N | rows N | search TERM | clear | sel ID | all | del ID | delsel | scroll | reload | quit`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		cmd := fields[0]
		arg := ""
		if len(fields) > 1 {
			arg = strings.TrimSpace(fields[1])
		}

		switch cmd {
		case "quit", "q", "exit":
			return
		case "next":
			controller.SetPage(controller.Snapshot().Page + 1)
		case "prev":
			controller.SetPage(controller.Snapshot().Page - 1)
		case "page":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Println("page needs a number")
				continue
			}
			controller.SetPage(n)
		case "rows":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Println("rows needs a number")
				continue
			}
			if err := controller.SetRowsPerPage(n); err != nil {
				fmt.Printf("allowed page sizes: %v\n", listview.AllowedRowsPerPage)
				continue
			}
		case "search":
			controller.SetSearchTerm(arg)
			// Let the debounced fetch fire before rendering
			time.Sleep(listview.SuggestDebounce + 50*time.Millisecond)
		case "clear":
			controller.SetSearchTerm("")
		case "sel":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Println("sel needs a row id")
				continue
			}
			controller.ToggleRow(n)
		case "all":
			controller.ToggleSelectAll()
		case "del":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Println("del needs a row id")
				continue
			}
			controller.DeleteRow(n)
		case "delsel":
			controller.DeleteSelected()
		case "scroll":
			controller.ScrollHitBottom()
		case "reload":
			controller.Reload()
		default:
			fmt.Printf("unknown command %q\n", cmd)
			continue
		}

		waitSettled(controller)
		render(controller)
	}
	if err := scanner.Err(); err != nil {
		log.Fatal("reading input:", err)
	}
}

// waitSettled polls until the controller leaves Loading.
func waitSettled(c *listview.Controller) {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if c.Snapshot().Phase != listview.PhaseLoading {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func render(c *listview.Controller) {
	snap := c.Snapshot()

	if snap.Phase == listview.PhaseError {
		fmt.Printf("error: %v (previous rows retained; any command retries)\n", snap.Err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEL\tID\tFIRST\tLAST\tEMAIL\tGENDER\tAGE\tCOUNTRY\tNOTIFY\tDOB")
	for _, row := range snap.Rows {
		mark := " "
		if snap.Selected(row.ID) {
			mark = "*"
		}
		dob := ""
		if row.DOB != nil {
			dob = row.DOB.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			mark, row.ID, row.FirstName, row.LastName, row.Email,
			row.Gender, row.Age, row.Country, row.Notification, dob)
	}
	w.Flush()

	if len(snap.Rows) == 0 {
		fmt.Println("(no rows)")
	}
	fmt.Printf("page %d · %d rows/page · %d total", snap.Page, snap.RowsPerPage, snap.TotalRows)
	if snap.SearchTerm != "" {
		fmt.Printf(" · filter %q", snap.SearchTerm)
	}
	if len(snap.SelectedIDs) > 0 {
		fmt.Printf(" · selected %v", snap.SelectedIDs)
	}
	if suggestions := c.Suggestions(); len(suggestions) > 0 {
		fmt.Printf(" · %d suggestions", len(suggestions))
	}
	fmt.Println()
}
