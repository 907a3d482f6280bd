// Command nhdpd runs the NHDP neighborhood database standalone, wired to
// real network interfaces, for manual inspection and integration testing of
// the ingestion pipeline outside of a full OLSRv2 daemon.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nhdp"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel   string
		ifaceNames []string
	)

	root := &cobra.Command{
		Use:   "nhdpd",
		Short: "NHDP neighborhood database daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("parse log level: %w", err)
			}
			log.SetLevel(level)
			entry := logrus.NewEntry(log)

			ifaces := nhdp.NewInterfaceRegistry()
			if err := nhdp.DiscoverInterfaces(ifaces, ifaceNames); err != nil {
				return fmt.Errorf("discover interfaces: %w", err)
			}
			if len(ifaces.All()) == 0 {
				return fmt.Errorf("no matching interfaces found (requested: %s)", strings.Join(ifaceNames, ","))
			}

			domains := nhdp.NewDomainRegistry()
			domains.Register(&nhdp.Domain{Ext: 0, Name: "default"})

			clock := nhdp.NewSystemClock()
			timers := nhdp.NewHeapTimers(clock)
			db := nhdp.NewDatabase(ifaces, domains)

			reader := nhdp.NewReader(db, ifaces, domains, clock, timers, nhdp.NoopHysteresis{}, entry)
			reader.OnLinkStatusChange = func(l *nhdp.Link, old, new nhdp.LinkState) {
				entry.Infof("%s", nhdp.DumpLink(l))
				_ = old
			}

			entry.WithField("interfaces", ifaceNames).Info("nhdpd ready; wire an RFC 5444 listener to reader.BeginMessage/Pass1Address/EndPass1/Pass2Address/EndPass2")
			select {}
		},
	}

	flags := root.Flags()
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringSliceVar(&ifaceNames, "interface", nil, "network interfaces to listen on (repeatable)")

	root.AddCommand(newShowNeighborsCmd())
	return root
}

func newShowNeighborsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-neighbors",
		Short: "print a one-shot snapshot of discovered interfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			ifaces := nhdp.NewInterfaceRegistry()
			if err := nhdp.DiscoverInterfaces(ifaces, nil); err != nil {
				return fmt.Errorf("discover interfaces: %w", err)
			}
			for _, li := range ifaces.All() {
				fmt.Println(li.String())
			}
			return nil
		},
	}
}
