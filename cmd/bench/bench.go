// Command bench measures the local hashrate of the nonce search.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ore-hq/pool-miner/search"
	"github.com/ore-hq/pool-miner/shared"
)

func main() {
	runtime.MemProfileRate = 0
	println("Memory profiling disabled.")

	cfg, err := loadConfig()
	if err != nil {
		os.Exit(1)
	}

	if cfg.CPU {
		dir, err := os.Getwd()
		if err != nil {
			log.Fatal("cant get current dir", err)
		}

		profFilePath := path.Join(dir, "./CPU.prof")
		fmt.Printf("CPU profile: %s\n", profFilePath)

		f, err := os.Create(profFilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()

		println("Cpu profiling enabled and started...")
	}

	challenge := &shared.Challenge{Bytes: make([]byte, 32), Algo: cfg.Algo}
	if _, err := rand.Read(challenge.Bytes); err != nil {
		panic("no entropy")
	}

	space := shared.NonceRange{Start: 0, End: uint64(1) << cfg.N}
	deadline := time.Now().Add(100 * 365 * 24 * time.Hour)
	if cfg.Duration > 0 {
		deadline = time.Now().Add(cfg.Duration)
	}
	fmt.Printf("nonces: %d, threads: %d, algo: %s\n", space.Size(), cfg.Threads, cfg.Algo)

	res, err := search.Run(
		context.Background(),
		clock.New(),
		search.Config{Workers: cfg.Threads, CheckEvery: search.DefaultCheckEvery},
		challenge,
		space,
		deadline,
	)
	if err != nil {
		log.Fatal("search failed: ", err)
	}
	if res.Best == nil {
		log.Fatal("no nonce was evaluated")
	}
	if err := shared.Verify(challenge, *res.Best); err != nil {
		log.Fatal("best solution failed verification: ", err)
	}

	fmt.Printf("Searched %d nonces in %s (%f)\n", res.Hashes, res.Elapsed, res.Elapsed.Seconds())
	fmt.Printf("Best nonce: %d, difficulty: %d, digest: %x\n", res.Best.Nonce, res.Best.Difficulty, res.Best.Digest)
	fmt.Printf("Hashrate: %s\n", formatRate(res.Hashrate()))

	fmt.Printf("%d %d %f %f\n", res.Hashes, cfg.Threads, res.Elapsed.Seconds(), res.Hashrate())
}

func formatRate(r float64) string {
	const unit = 1000
	if r < unit {
		return fmt.Sprintf("%.1f H/s", r)
	}
	div, exp := float64(unit), 0
	for n := r / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cH/s", r/div, "kMGTPE"[exp])
}
