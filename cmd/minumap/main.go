package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/sbl8/minumap/coord"
	"github.com/sbl8/minumap/mapper"
	"github.com/sbl8/minumap/trace"
)

func main() {
	var (
		coordsPath = flag.String("coords", "", "Input coordinate file, one 'x y z' triple per line")
		kernelSize = flag.Int("kernel", 3, "Kernel cube size (odd), generating kernel^3 offsets")
		stride     = flag.Int("stride", 1, "Quantization stride")
		tileSize   = flag.Int("tile", 16, "Tile size (<= 0 means one tile covering everything)")
		threads    = flag.Int("threads", 0, "Virtual thread count (0 uses the config value)")
		configPath = flag.String("config", "", "Optional JSON configuration file")
		tracePath  = flag.String("trace", "mem_trace.gz", "Output path for the access trace")
		kmapPath   = flag.String("kmap", "kernel_map.gz", "Output path for the kernel map")
		addrSize   = flag.Int("addr-size", 4, "Trace address width in bytes (4 or 8)")
		debug      = flag.Bool("debug", false, "Enable debug output")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Println("minumap - sparse kernel map builder v1.0.0")
		fmt.Printf("Built with Go %s\n", runtime.Version())
		return
	}

	if *coordsPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -coords <file> [options]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := trace.DefaultConfig()
	if *configPath != "" {
		loaded, err := trace.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *threads > 0 {
		cfg.NumThreads = *threads
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	coords, err := loadCoords(*coordsPath)
	if err != nil {
		log.Fatalf("Failed to load coordinates: %v", err)
	}

	offsets, err := kernelOffsets(*kernelSize)
	if err != nil {
		log.Fatalf("Failed to build kernel offsets: %v", err)
	}

	if cfg.Debug {
		log.Printf("Loaded %d coordinates, %d kernel offsets", len(coords), len(offsets))
	}

	p := mapper.New(cfg)
	res, err := p.Run(coords, offsets, int32(*stride), *tileSize)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	entries := p.Recorder().Entries()
	traceCRC, err := trace.WriteTraceFile(*tracePath, entries, *addrSize)
	if err != nil {
		log.Fatalf("Failed to write trace: %v", err)
	}

	kmapCRC, err := mapper.WriteKernelMapFile(*kmapPath, res.KernelMap, offsets)
	if err != nil {
		log.Fatalf("Failed to write kernel map: %v", err)
	}

	fmt.Printf("Unique coordinates: %d\n", len(res.Unique))
	fmt.Printf("Queries: %d\n", res.Queries.Len())
	fmt.Printf("Tiles: %d\n", len(res.Tiling.Tiles))
	fmt.Printf("Kernel map matches: %d\n", res.KernelMap.TotalMatches())
	fmt.Printf("Trace: %s (%d entries, crc32 0x%08x)\n", *tracePath, len(entries), traceCRC)
	fmt.Printf("Kernel map: %s (crc32 0x%08x)\n", *kmapPath, kmapCRC)
}

// loadCoords reads one whitespace-separated x y z triple per line. Blank
// lines and lines starting with '#' are skipped.
func loadCoords(path string) ([]coord.Coord3D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var coords []coord.Coord3D
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 components, got %d", lineNo, len(fields))
		}
		var c coord.Coord3D
		for i, dst := range []*int32{&c.X, &c.Y, &c.Z} {
			v, err := strconv.ParseInt(fields[i], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			*dst = int32(v)
		}
		coords = append(coords, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return coords, nil
}

// kernelOffsets generates the size^3 offsets of a cubic kernel centered at
// the origin, z-fastest.
func kernelOffsets(size int) ([]coord.Coord3D, error) {
	if size <= 0 || size%2 == 0 {
		return nil, fmt.Errorf("kernel size must be odd and positive, got %d", size)
	}
	half := int32(size / 2)
	offsets := make([]coord.Coord3D, 0, size*size*size)
	for x := -half; x <= half; x++ {
		for y := -half; y <= half; y++ {
			for z := -half; z <= half; z++ {
				offsets = append(offsets, coord.Coord3D{X: x, Y: y, Z: z})
			}
		}
	}
	return offsets, nil
}
