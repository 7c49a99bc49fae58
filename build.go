//go:build ignore

// build.go - SheetLens build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, server, report, clean, test, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "sheetlens"

var (
	rootDir string
	distDir string

	// key = directory under cmd/, value = output name without extension
	executables = map[string]string{
		"sheetlens":        "sheetlens",
		"sheetlens-report": "sheetlens-report",
	}

	// release targets as GOOS/GOARCH
	platforms = []string{
		"linux/amd64",
		"linux/arm64",
		"darwin/arm64",
		"windows/amd64",
	}

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

type buildContext struct {
	Verbose bool
	Version string
	Commit  string
	GOOS    string
	GOARCH  string
	OutDir  string
}

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic(fmt.Sprintf("go.mod not found in %s, run from the repository root", rootDir))
	}
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	version := flag.String("version", "dev", "Version stamped into the binaries")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	ctx := &buildContext{
		Verbose: *verbose,
		Version: *version,
		Commit:  gitCommit(),
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		OutDir:  distDir,
	}

	switch *target {
	case "all":
		for name := range executables {
			buildExecutable(name, ctx)
		}
	case "server":
		buildExecutable("sheetlens", ctx)
	case "report":
		buildExecutable("sheetlens-report", ctx)
	case "clean":
		clean()
	case "test":
		runTests(ctx.Verbose)
	case "release":
		buildRelease(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "        SheetLens - Build System           " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func ldflags(ctx *buildContext) string {
	pkg := module + "/pkg/contracts"
	return fmt.Sprintf("-s -w -X %s.Version=%s -X %s.BuildTime=%s -X %s.GitCommit=%s",
		pkg, ctx.Version,
		pkg, time.Now().UTC().Format(time.RFC3339),
		pkg, ctx.Commit)
}

func buildExecutable(name string, ctx *buildContext) {
	exeName, ok := executables[name]
	if !ok {
		printError(fmt.Sprintf("Unknown executable: %s", name))
		os.Exit(1)
	}
	if ctx.GOOS == "windows" {
		exeName += ".exe"
	}

	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, ctx.GOOS, ctx.GOARCH))

	outputPath := filepath.Join(ctx.OutDir, exeName)
	args := []string{"build", "-trimpath", "-ldflags", ldflags(ctx), "-o", outputPath, "./cmd/" + name}
	if ctx.Verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
	}

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Env = append(os.Environ(), "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH, "CGO_ENABLED=0")
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		sizeMB := float64(info.Size()) / 1024 / 1024
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", outputPath, sizeMB))
	}
}

// buildRelease cross-compiles every executable into dist/<os>_<arch>
func buildRelease(ctx *buildContext) {
	printInfo("Building release " + ctx.Version)
	clean()
	for _, platform := range platforms {
		goos, goarch, _ := strings.Cut(platform, "/")
		pctx := *ctx
		pctx.GOOS = goos
		pctx.GOARCH = goarch
		pctx.OutDir = filepath.Join(distDir, goos+"_"+goarch)
		for name := range executables {
			buildExecutable(name, &pctx)
		}
	}
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
		return
	}
	printSuccess("Build artifacts cleaned")
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v] [-version=X.Y.Z]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all      build sheetlens and sheetlens-report into dist/")
	fmt.Println("  server   build the sheetlens web server")
	fmt.Println("  report   build the sheetlens-report command")
	fmt.Println("  test     run the Go tests with the race detector")
	fmt.Println("  release  cross-compile every executable into dist/<os>_<arch>")
	fmt.Println("  clean    remove dist/")
}
