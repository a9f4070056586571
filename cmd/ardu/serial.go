package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/buckleypaul/ardu/internal/serial"
	"github.com/buckleypaul/ardu/internal/store"
	"github.com/buckleypaul/ardu/internal/ui"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := serial.ListPorts()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, ui.DimStyle.Render("No serial ports found"))
				return nil
			}
			for _, p := range ports {
				line := p.Name
				if p.IsUSB {
					line += "  " + ui.DimStyle.Render(fmt.Sprintf("USB %s:%s %s", p.VID, p.PID, p.SerialNumber))
				}
				if p.Product != "" {
					line += "  " + p.Product
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newMonitorCmd() *cobra.Command {
	var port string
	var baud int
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Open a serial monitor on the sketch port",
		Long:  "monitor prints everything the board sends. Lines typed on stdin are sent\nto the board. Interrupt to exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace(workspaceDir)
			if err != nil {
				return err
			}
			defer ws.Close()

			if port == "" {
				port = ws.dev.Settings().Port
			}
			if port == "" {
				return fmt.Errorf("no serial port: pass --port or set \"port\" in arduino.json")
			}
			if baud <= 0 {
				baud = ws.settings.Get().SerialBaudRate
			}

			mon := serial.NewMonitor()
			if err := mon.Connect(port, baud); err != nil {
				return fmt.Errorf("connect %s: %w", port, err)
			}
			defer mon.Disconnect()

			_ = ws.store.AddSerialLog(store.SerialLog{
				ID:        uuid.NewString(),
				Port:      port,
				BaudRate:  baud,
				Timestamp: time.Now(),
			})

			out := cmd.OutOrStdout()
			fmt.Fprintln(cmd.ErrOrStderr(), ui.InfoStyle.Render(fmt.Sprintf("Connected to %s @ %d", port, baud)))

			go func() {
				sc := bufio.NewScanner(os.Stdin)
				for sc.Scan() {
					if err := mon.Write([]byte(sc.Text() + "\n")); err != nil {
						return
					}
				}
			}()

			ctx := cmd.Context()
			data := mon.DataChan()
			for {
				select {
				case <-ctx.Done():
					return nil
				case chunk := <-data:
					fmt.Fprint(out, chunk)
				}
			}
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port (default: port from arduino.json)")
	cmd.Flags().IntVarP(&baud, "baud", "b", 0, "baud rate (default: serial_baud_rate setting)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace(workspaceDir)
			if err != nil {
				return err
			}
			defer ws.Close()

			builds, err := ws.store.Builds()
			if err != nil {
				return err
			}
			if limit > 0 && len(builds) > limit {
				builds = builds[len(builds)-limit:]
			}
			out := cmd.OutOrStdout()
			for i := len(builds) - 1; i >= 0; i-- {
				b := builds[i]
				status := ui.ResultBadge(b.Success, b.ExitCode)
				fmt.Fprintf(out, "%s  %-28s %-24s %-20s %8s %s\n",
					b.Timestamp.Format("2006-01-02 15:04:05"), b.Mode, b.Sketch, b.Board, b.Duration, status)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of builds to show (0 for all)")
	return cmd
}
