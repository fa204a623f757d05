package main

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"talkbridge/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the TalkBridge setup",
		Long: `Verifies that TalkBridge's configuration is complete and that the
TalkTalk and Sendbird endpoints are reachable. Reports pass/fail per check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("TalkBridge Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0

			cfg, err := config.Load(configPath)
			if err != nil {
				printFail("Configuration", err.Error())
				fmt.Printf("\n1 check failed. Set the TALKBRIDGE_* environment variables and retry.\n")
				return fmt.Errorf("configuration invalid")
			}
			printPass("Configuration", "complete")
			passed++

			if err := checkReachable(cfg.TalkTalk.APIURL); err != nil {
				printFail("TalkTalk endpoint", err.Error())
				failed++
			} else {
				printPass("TalkTalk endpoint", cfg.TalkTalk.APIURL)
				passed++
			}

			if err := checkReachable(cfg.Sendbird.APIURL); err != nil {
				printFail("Sendbird endpoint", err.Error())
				failed++
			} else {
				printPass("Sendbird endpoint", cfg.Sendbird.APIURL)
				passed++
			}

			if err := checkListenAddr(cfg.ListenAddr); err != nil {
				printFail("Listen address", fmt.Sprintf("%s: %v", cfg.ListenAddr, err))
				failed++
			} else {
				printPass("Listen address", cfg.ListenAddr+" available")
				passed++
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d failed\n", passed, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			fmt.Printf("\nAll checks passed! TalkBridge is ready to run.\n")
			return nil
		},
	}
}

// checkReachable opens a TCP connection to the API host.
func checkReachable(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		if u.Scheme == "http" {
			host += ":80"
		} else {
			host += ":443"
		}
	}
	conn, err := net.DialTimeout("tcp", host, 5*time.Second)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

func checkListenAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}
