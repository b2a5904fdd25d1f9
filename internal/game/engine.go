package game

import (
	"context"
	"log"
	"sync"
	"time"

	"minionwar/internal/api"
	"minionwar/internal/config"
	"minionwar/internal/oracle"
)

// Callbacks receives every broadcastable event the engine produces. The
// transport layer implements this to fan events out over the wire; tests can
// implement it with a recording stub. Method order within a single call site
// matches the ordering guarantee in spec §5: infection/elimination events
// precede the state broadcast that reflects them.
type Callbacks interface {
	OnStateUpdate(players []PlayerView, minions []MinionView)
	OnInfection(winner, loser MinionView, maxFleetKill bool)
	OnPlayerEliminated(playerID, playerName, eliminatedBy string)
	OnPlayerJoined(p PlayerView)
	OnPlayerLeft(playerID string)
	OnNameChanged(playerID, oldName, newName string)
	OnPlayerRespawned(playerID, playerName string)
}

// Engine is the tick-driven orchestrator: it owns the World, drives physics
// and collision detection every tick, and dispatches eligible collisions to
// the oracle resolver without blocking the tick loop. Each result is applied
// by applyAndBroadcast as soon as it arrives, on the goroutine that resolved
// it, after re-checking the pair against the current world state.
type Engine struct {
	mu sync.Mutex

	world    *World
	resolver *oracle.Resolver
	fleet    config.FleetConfig
	cb       Callbacks

	tickRate int
	ticker   *time.Ticker
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool

	lastTick  time.Time
	tickCount uint64
}

// NewEngine wires a world, an oracle resolver, and a callback sink into a
// runnable engine. tickRate is target ticks per second (spec targets 60 Hz).
func NewEngine(world *World, resolver *oracle.Resolver, fleet config.FleetConfig, tickRate int, cb Callbacks) *Engine {
	return &Engine{
		world:    world,
		resolver: resolver,
		fleet:    fleet,
		cb:       cb,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

// SetCallbacks wires the broadcast sink after construction, for callers that
// need the Engine to build the sink (e.g. a transport adapter that wraps
// this same Engine). Must be called before Start.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cb = cb
}

// Start launches the tick loop goroutine.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = time.Now()
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	e.mu.Unlock()

	log.Printf("🎮 engine starting at %d ticks/sec", e.tickRate)

	e.wg.Add(1)
	go e.run()
}

// Stop halts the tick loop and blocks until it has exited.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.stopChan)
	e.wg.Wait()
	if e.ticker != nil {
		e.ticker.Stop()
	}
	log.Printf("🛑 engine stopped after %d ticks", e.tickCount)
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopChan:
			return
		case now := <-e.ticker.C:
			e.tick(now)
		}
	}
}

// tick advances the world by one step: movement completes before any
// collision adjudication begins, satisfying spec §4.1's ordering guarantee.
func (e *Engine) tick(now time.Time) {
	tickStart := time.Now()
	defer func() { api.RecordTick(time.Since(tickStart)) }()

	dt := now.Sub(e.lastTick).Seconds()
	if dt > e.fleet.MaxDeltaSeconds {
		dt = e.fleet.MaxDeltaSeconds
	}
	e.lastTick = now
	e.tickCount++

	grace := durationSeconds(e.fleet.InfectionGraceSeconds)
	quiescence := durationSeconds(e.fleet.AttackerQuiescenceSeconds)

	e.world.mu.Lock()
	e.world.stepPhysics(dt)
	pairs := e.world.detectEligiblePairs(now, grace)
	players, minions := e.world.lockedSnapshot()
	e.world.mu.Unlock()

	for _, cand := range pairs {
		cand := cand
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		submitted := e.resolver.Submit(ctx, cand.aName, cand.bName, func(v oracle.Verdict) {
			defer cancel()
			e.applyAndBroadcast(cand, v, grace, quiescence)
		})
		if !submitted {
			cancel()
		}
	}

	api.UpdatePlayerCount(len(players))
	api.UpdateMinionCount(len(minions))
	e.cb.OnStateUpdate(players, minions)
}

// applyAndBroadcast runs on the resolver's worker goroutine once an
// adjudication completes. It re-locks the world just long enough to
// re-validate and mutate, then emits the ordered broadcast sequence spec §5
// requires: infection/elimination events before the state update reflecting
// them.
func (e *Engine) applyAndBroadcast(cand collisionCandidate, v oracle.Verdict, grace, quiescence time.Duration) {
	e.world.mu.Lock()
	out, applied := e.world.applyOutcome(time.Now(), cand, v.Winner, v.Loser, quiescence, grace)
	var players []PlayerView
	var minions []MinionView
	if applied {
		players, minions = e.world.lockedSnapshot()
	}
	e.world.mu.Unlock()

	if !applied {
		return
	}

	winnerView := minionView(&out.winner, grace, quiescence)
	loserView := minionView(&out.loser, grace, quiescence)
	outcome := "convert"
	if out.maxFleetKill {
		outcome = "max_fleet_kill"
	}
	api.RecordInfection(outcome)
	e.cb.OnInfection(winnerView, loserView, out.maxFleetKill)

	if out.eliminated {
		e.cb.OnPlayerEliminated(out.eliminatedID, out.eliminatedName, out.eliminatedBy)
	}

	api.UpdatePlayerCount(len(players))
	api.UpdateMinionCount(len(minions))
	e.cb.OnStateUpdate(players, minions)
}

func durationSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
