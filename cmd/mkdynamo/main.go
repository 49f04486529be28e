// Command mkdynamo manages table declarations for the in-process
// storage engines. It applies a YAML schema file to a backend and can
// dump the rows of every declared table, which is handy for inspecting
// a fixture database left behind by a test run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
	"github.com/sffej/jcabi-dynamo/kvdata"
	"github.com/sffej/jcabi-dynamo/schema"
	"github.com/sffej/jcabi-dynamo/sqldata"
)

func main() {
	var (
		schemaPath = flag.String("schema", "", "YAML schema file to apply")
		backend    = flag.String("backend", "sqlite", "storage backend: sqlite or badger")
		path       = flag.String("path", "", "database path (empty for in-memory)")
		dump       = flag.Bool("dump", false, "print the rows of every declared table")
		level      = flag.String("level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	log := newLogger(*level)
	if *schemaPath == "" {
		log.Fatal().Msg("missing -schema")
	}

	if err := run(context.Background(), log, *schemaPath, *backend, *path, *dump); err != nil {
		log.Fatal().Err(err).Msg("mkdynamo failed")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func run(ctx context.Context, log zerolog.Logger, schemaPath, backend, path string, dump bool) error {
	sch, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}

	data, err := openBackend(backend, path, &log)
	if err != nil {
		return err
	}
	defer data.Close()

	if err := sch.Apply(ctx, data); err != nil {
		return err
	}
	log.Info().Int("tables", len(sch.Tables)).Str("backend", backend).Msg("schema applied")

	if !dump {
		return nil
	}
	for _, t := range sch.Tables {
		if err := dumpTable(ctx, data, t.Name); err != nil {
			return fmt.Errorf("dump %q: %w", t.Name, err)
		}
	}
	return nil
}

func openBackend(backend, path string, log *zerolog.Logger) (dynamo.Data, error) {
	switch backend {
	case "sqlite":
		return sqldata.New(sqldata.Options{Path: path, Logger: log})
	case "badger":
		return kvdata.New(kvdata.Options{Path: path, Logger: log})
	default:
		return nil, fmt.Errorf("unknown backend %q (want sqlite or badger)", backend)
	}
}

func dumpTable(ctx context.Context, data dynamo.Data, table string) error {
	it, err := data.Iterate(ctx, table, dynamo.Conditions{})
	if err != nil {
		return err
	}
	defer it.Close()

	fmt.Printf("== %s\n", table)
	for {
		row, err := it.Next()
		if dynerrors.IsNoSuchElement(err) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("  %s\n", renderRow(row))
	}
}

func renderRow(row dynamo.Attributes) string {
	names := row.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, renderValue(row[name])))
	}
	return strings.Join(parts, " ")
}

func renderValue(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return fmt.Sprintf("%q", v.Value)
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%t", v.Value)
	case *types.AttributeValueMemberB:
		return fmt.Sprintf("0x%x", v.Value)
	case *types.AttributeValueMemberSS:
		vals := append([]string(nil), v.Value...)
		sort.Strings(vals)
		return "{" + strings.Join(vals, ",") + "}"
	case *types.AttributeValueMemberNS:
		vals := append([]string(nil), v.Value...)
		sort.Strings(vals)
		return "{" + strings.Join(vals, ",") + "}"
	case *types.AttributeValueMemberNULL:
		return "null"
	default:
		return fmt.Sprintf("%v", av)
	}
}
