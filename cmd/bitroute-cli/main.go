// Copyright 2025 The bitroute Authors
// This file is part of bitroute.
//
// bitroute is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bitroute is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with bitroute. If not, see <http://www.gnu.org/licenses/>.

// bitroute-cli issues single queries against a running gateway.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bitroute/bitroute/client"
	"github.com/bitroute/bitroute/params"
	"github.com/bitroute/bitroute/status"
)

var (
	serverFlag = &cli.StringFlag{
		Name:  "server",
		Usage: "Query endpoint of the gateway",
		Value: "tcp://127.0.0.1:9091",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Initial retry deadline",
		Value: client.DefaultTimeout,
	}
	retriesFlag = &cli.IntFlag{
		Name:  "retries",
		Usage: "Resend budget after the initial send",
		Value: client.DefaultRetries,
	}
)

func main() {
	app := &cli.App{
		Name:    "bitroute-cli",
		Usage:   "Issue queries against a bitroute gateway",
		Version: params.Version,
		Flags:   []cli.Flag{serverFlag, timeoutFlag, retriesFlag},
		Commands: []*cli.Command{
			{
				Name:   "fetch-height",
				Usage:  "Print the height of the last block",
				Action: fetchHeight,
			},
			{
				Name:      "fetch-header",
				Usage:     "Print the header at a height",
				ArgsUsage: "<height>",
				Action:    fetchHeader,
			},
			{
				Name:      "fetch-transaction",
				Usage:     "Print a transaction by hash",
				ArgsUsage: "<hex hash>",
				Action:    fetchTransaction,
			},
			{
				Name:      "broadcast",
				Usage:     "Broadcast a serialized transaction",
				ArgsUsage: "<hex tx>",
				Action:    broadcast,
			},
			{
				Name:   "version",
				Usage:  "Print the server version",
				Action: serverVersion,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// query sends one request and drives the engine until it completes or
// is abandoned.
func query(ctx *cli.Context, command string, payload []byte) ([]byte, error) {
	abandoned := make(chan struct{}, 1)
	engine, err := client.Dial(ctx.String(serverFlag.Name),
		client.WithTimeout(ctx.Duration(timeoutFlag.Name)),
		client.WithRetries(ctx.Int(retriesFlag.Name)),
		client.WithAbandonHandler(func(uint32, string) {
			abandoned <- struct{}{}
		}))
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	results := make(chan []byte, 1)
	if _, err := engine.Request(command, payload, func(response []byte) {
		results <- response
	}); err != nil {
		return nil, err
	}

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case response := <-results:
			code, ok := status.FromBytes(response)
			if !ok {
				return nil, fmt.Errorf("short response")
			}
			if code != status.Success {
				return nil, fmt.Errorf("server error: %s", code)
			}
			return response[status.Size:], nil
		case <-abandoned:
			return nil, fmt.Errorf("no response from %s", ctx.String(serverFlag.Name))
		case <-tick.C:
			engine.Poll()
		}
	}
}

func fetchHeight(ctx *cli.Context) error {
	result, err := query(ctx, "blockchain.fetch_last_height", nil)
	if err != nil {
		return err
	}
	if len(result) != 4 {
		return fmt.Errorf("malformed height response")
	}
	fmt.Println(binary.LittleEndian.Uint32(result))
	return nil
}

func fetchHeader(ctx *cli.Context) error {
	var height uint32
	if _, err := fmt.Sscanf(ctx.Args().First(), "%d", &height); err != nil {
		return fmt.Errorf("invalid height %q", ctx.Args().First())
	}
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, height)
	result, err := query(ctx, "blockchain.fetch_block_header", payload)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(result))
	return nil
}

func fetchTransaction(ctx *cli.Context) error {
	hash, err := hex.DecodeString(ctx.Args().First())
	if err != nil || len(hash) != 32 {
		return fmt.Errorf("invalid transaction hash %q", ctx.Args().First())
	}
	result, err := query(ctx, "blockchain.fetch_transaction", hash)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(result))
	return nil
}

func broadcast(ctx *cli.Context) error {
	raw, err := hex.DecodeString(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid transaction encoding")
	}
	if _, err := query(ctx, "transaction_pool.broadcast", raw); err != nil {
		return err
	}
	fmt.Println("accepted")
	return nil
}

func serverVersion(ctx *cli.Context) error {
	result, err := query(ctx, "server.version", nil)
	if err != nil {
		return err
	}
	fmt.Println(string(result))
	return nil
}
