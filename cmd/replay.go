package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go-grid-engine/internal/model"
	"go-grid-engine/internal/source"
)

const dataFlag = "data"

// maxLineSize bounds one request envelope; init envelopes carry whole datasets.
const maxLineSize = 64 << 20

func newReplayCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [SCRIPT]",
		Short: "Feed a JSON-lines script of request envelopes to an engine session",
		Long: `Feed a JSON-lines script of request envelopes to one engine session and
print each response as one JSON line. The script is read from SCRIPT, or from
stdin when SCRIPT is omitted or "-". Blank lines are skipped.

With --data, init envelopes that carry no rows are given the rows of that file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := "-"
			if len(args) == 1 {
				script = args[0]
			}
			return replay(cmd, v, script)
		},
	}

	cmd.Flags().String(dataFlag, "", "CSV or JSON rows for init envelopes without data")
	return cmd
}

func replay(cmd *cobra.Command, v *viper.Viper, script string) error {
	var in io.Reader = cmd.InOrStdin()
	if script != "-" {
		file, err := os.Open(script)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer file.Close()
		in = file
	}

	rt, err := newRuntime(v)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	var dataset []model.Row
	if path, _ := cmd.Flags().GetString(dataFlag); path != "" {
		if dataset, err = source.LoadFile(ctx, path); err != nil {
			return err
		}
	}

	client := rt.newClient(ctx)
	defer client.Close()

	encoder := json.NewEncoder(cmd.OutOrStdout())
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var req model.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("line %d: invalid request envelope: %w", line, err)
		}
		if req.Action == model.ActionInit && req.Data == nil && dataset != nil {
			req.Data = dataset
		}

		reqCtx, cancel := rt.requestContext(ctx)
		resp, err := client.Do(reqCtx, req)
		cancel()
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		rt.logger.Debug("replayed request",
			zap.Int("line", line),
			zap.String("request_id", resp.ID),
			zap.String("action", string(resp.Action)),
		)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}
