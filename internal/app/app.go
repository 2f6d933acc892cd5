// Package app bootstraps the client runtime. Resource loading, engine
// construction, and channel setup form a dependency graph that is
// resolved through the tasker; any task failure aborts the boot.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	client "tankdown/client"
	"tankdown/client/internal/catalog"
	"tankdown/client/internal/keybind"
	"tankdown/client/internal/net/ws"
	"tankdown/client/internal/proto"
	"tankdown/client/internal/replay"
	"tankdown/client/internal/tasker"
	"tankdown/client/logging"
)

// Mode selects how the runtime sources its event stream.
type Mode int

const (
	// ModeReplay plays back a preloaded event file; no channel opens.
	ModeReplay Mode = iota
	// ModePlay joins the live channel as a named player and can send
	// input commands.
	ModePlay
	// ModeSpectate joins the live channel without a player role.
	ModeSpectate
)

// Fetch loads one named resource. Transport is the host's concern;
// names are logical ("elements.json"), not paths.
type Fetch func(ctx context.Context, name string) ([]byte, error)

// Default resource names, overridable per Config.
const (
	DefaultElementCatalogName = "elements.json"
	DefaultTextureCatalogName = "textures.json"
	DefaultKeyBindingsName    = "keybinds.yaml"
	DefaultReplayName         = "replay.json"
)

type Config struct {
	Mode       Mode
	PlayerName string
	ChannelURL string
	Fetch      Fetch

	ElementCatalogName string
	TextureCatalogName string
	KeyBindingsName    string
	ReplayName         string

	Logger    *log.Logger
	Publisher logging.Publisher
	OnError   func(messages []string)
	OnRoster  func(players []client.Player)
	View      client.View
	// Tap observes each inbound event document in the online modes.
	Tap func(raw []byte)
}

// Runtime is the assembled client, ready to Start.
type Runtime struct {
	Engine   *client.Engine
	Textures *catalog.Textures
	// Channel is nil in replay mode.
	Channel *ws.Channel
	// Input is nil unless the runtime joined as a player.
	Input *keybind.Dispatcher
	// Report carries per-task boot diagnostics.
	Report *tasker.RunReport
}

// Task names in the boot graph.
const (
	taskElementCatalog = "element-catalog"
	taskTextureCatalog = "texture-catalog"
	taskKeyBindings    = "key-bindings"
	taskReplay         = "replay"
	taskEngine         = "engine"
	taskChannel        = "channel"
	taskRuntime        = "runtime"
)

// Boot resolves the boot graph and returns the runtime. The per-task
// outcome is published through cfg.Publisher whether or not the run
// succeeds.
func Boot(ctx context.Context, cfg Config) (*Runtime, error) {
	if cfg.Fetch == nil {
		return nil, fmt.Errorf("boot: a Fetch function is required")
	}
	if cfg.Mode != ModeReplay && cfg.ChannelURL == "" {
		return nil, fmt.Errorf("boot: online modes need a channel URL")
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}

	orDefault := func(name, fallback string) string {
		if name != "" {
			return name
		}
		return fallback
	}
	elementName := orDefault(cfg.ElementCatalogName, DefaultElementCatalogName)
	textureName := orDefault(cfg.TextureCatalogName, DefaultTextureCatalogName)
	bindingsName := orDefault(cfg.KeyBindingsName, DefaultKeyBindingsName)
	replayName := orDefault(cfg.ReplayName, DefaultReplayName)

	identity := proto.Spectator()
	if cfg.Mode == ModePlay {
		id, err := proto.PlayerIdentity(cfg.PlayerName)
		if err != nil {
			return nil, fmt.Errorf("boot: %w", err)
		}
		identity = id
	}

	registry := client.DefaultRegistry()

	tasks := []tasker.Task{
		{
			Name: taskElementCatalog,
			Run: func(ctx context.Context, deps []any) (any, error) {
				data, err := cfg.Fetch(ctx, elementName)
				if err != nil {
					return nil, fmt.Errorf("fetch %s: %w", elementName, err)
				}
				return catalog.ParseElements(data)
			},
		},
		{
			Name: taskTextureCatalog,
			Run: func(ctx context.Context, deps []any) (any, error) {
				data, err := cfg.Fetch(ctx, textureName)
				if err != nil {
					return nil, fmt.Errorf("fetch %s: %w", textureName, err)
				}
				return catalog.ParseTextures(data)
			},
		},
	}

	engineNeeds := []string{taskElementCatalog, taskTextureCatalog}
	if cfg.Mode == ModeReplay {
		tasks = append(tasks, tasker.Task{
			Name: taskReplay,
			Run: func(ctx context.Context, deps []any) (any, error) {
				data, err := cfg.Fetch(ctx, replayName)
				if err != nil {
					return nil, fmt.Errorf("fetch %s: %w", replayName, err)
				}
				return replay.Load(data, registry)
			},
		})
		engineNeeds = append(engineNeeds, taskReplay)
	}

	tasks = append(tasks, tasker.Task{
		Name:  taskEngine,
		Needs: engineNeeds,
		Run: func(ctx context.Context, deps []any) (any, error) {
			elements := deps[0].(*catalog.Elements)
			textures := deps[1].(*catalog.Textures)
			engine, err := client.NewEngine(client.Config{
				ElementTypes: elements,
				Textures:     textures,
				Registry:     registry,
				Publisher:    pub,
				OnError:      cfg.OnError,
				OnRoster:     cfg.OnRoster,
				View:         cfg.View,
			})
			if err != nil {
				return nil, err
			}
			if len(deps) > 2 {
				if err := engine.Preload(deps[2].([]client.Record)); err != nil {
					return nil, err
				}
			}
			return engine, nil
		},
	})

	runtimeNeeds := []string{taskEngine, taskTextureCatalog}

	// dialed is written by the channel task before it completes, so a
	// boot that fails after the dial can still close the connection. The
	// mutex covers the cancellation path, where Run returns while the
	// dial may still be in flight.
	var dialMu sync.Mutex
	var dialed *ws.Channel

	if cfg.Mode != ModeReplay {
		tasks = append(tasks, tasker.Task{
			Name:  taskChannel,
			Needs: []string{taskEngine},
			Run: func(ctx context.Context, deps []any) (any, error) {
				engine := deps[0].(*client.Engine)
				channel, err := ws.Dial(ctx, cfg.ChannelURL, identity, engine, ws.Config{
					Logger:    cfg.Logger,
					Publisher: pub,
					Tap:       cfg.Tap,
				})
				if err != nil {
					return nil, err
				}
				dialMu.Lock()
				dialed = channel
				dialMu.Unlock()
				return channel, nil
			},
		})
		runtimeNeeds = append(runtimeNeeds, taskChannel)
	}

	if cfg.Mode == ModePlay {
		tasks = append(tasks, tasker.Task{
			Name: taskKeyBindings,
			Run: func(ctx context.Context, deps []any) (any, error) {
				data, err := cfg.Fetch(ctx, bindingsName)
				if err != nil {
					return nil, fmt.Errorf("fetch %s: %w", bindingsName, err)
				}
				return keybind.Parse(data)
			},
		})
		runtimeNeeds = append(runtimeNeeds, taskKeyBindings)
	}

	tasks = append(tasks, tasker.Task{
		Name:  taskRuntime,
		Needs: runtimeNeeds,
		Run: func(ctx context.Context, deps []any) (any, error) {
			rt := &Runtime{
				Engine:   deps[0].(*client.Engine),
				Textures: deps[1].(*catalog.Textures),
			}
			if cfg.Mode != ModeReplay {
				rt.Channel = deps[2].(*ws.Channel)
			}
			if cfg.Mode == ModePlay {
				rt.Input = keybind.NewDispatcher(deps[3].(*keybind.Table), rt.Channel)
			}
			return rt, nil
		},
	})

	graph, err := tasker.NewGraph(taskRuntime, tasks...)
	if err != nil {
		return nil, err
	}

	result, report, runErr := tasker.Run(ctx, graph)
	publishReport(ctx, pub, report, runErr)
	if runErr != nil {
		dialMu.Lock()
		if dialed != nil {
			dialed.Close()
		}
		dialMu.Unlock()
		return nil, runErr
	}

	rt := result.(*Runtime)
	rt.Report = report
	return rt, nil
}

func publishReport(ctx context.Context, pub logging.Publisher, report *tasker.RunReport, runErr error) {
	if report == nil {
		return
	}
	for _, task := range report.Tasks {
		severity := logging.SeverityDebug
		if task.State == tasker.StateFailed {
			severity = logging.SeverityError
		}
		event := logging.Event{
			Type:     logging.TypeTaskFinished,
			Severity: severity,
			Actor:    logging.EntityRef{ID: task.Name, Kind: logging.EntityKindTask},
			RunID:    report.RunID,
			Extra: map[string]any{
				"state":    string(task.State),
				"duration": task.Duration.String(),
			},
		}
		if task.Err != nil {
			event.Message = task.Err.Error()
		}
		pub.Publish(ctx, event)
	}
	if runErr != nil {
		pub.Publish(ctx, logging.Event{
			Type:     logging.TypeTaskRunFailed,
			Severity: logging.SeverityError,
			RunID:    report.RunID,
			Message:  runErr.Error(),
		})
	}
}
