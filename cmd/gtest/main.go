// gtest compiles every test source with lrc and compares stdout, stderr, the
// exit code and every artifact file against a golden JSON record.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout         string        `json:"stdout"`
	Stderr         string        `json:"stderr"`
	ExitCode       int           `json:"exitCode"`
	Duration       time.Duration `json:"duration"`
	TimedOut       bool          `json:"timed_out"`
	UnstableOutput bool          `json:"unstable_output,omitempty"`
}

type CompileResult struct {
	Compile   Execution         `json:"compile"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

type FileTestResult struct {
	File    string         `json:"file"`
	Status  string         `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string         `json:"message,omitempty"`
	Diff    string         `json:"diff,omitempty"`
	Golden  *CompileResult `json:"golden,omitempty"`
	Target  *CompileResult `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	targetCompiler = flag.String("target-compiler", "./lrc", "Path to the compiler to test.")
	targetArgs     = flag.String("target-args", "", "Arguments for the target compiler (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate a golden .json file for a given source file.")
	updateGolden   = flag.Bool("update", false, "Rewrite the golden file of every tested source instead of comparing.")
	testFiles      = flag.String("test-files", "tests/*.lrc", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each compiler invocation.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	runs           = flag.Int("runs", 3, "Number of times to compile each file, to find the minimum duration and unstable output.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

const (
	cRed     = "\x1b[91m"
	cYellow  = "\x1b[93m"
	cGreen   = "\x1b[92m"
	cCyan    = "\x1b[96m"
	cMagenta = "\x1b[95m"
	cBold    = "\x1b[1m"
	cNone    = "\x1b[0m"
)

// Placeholders for paths that differ between machines and runs.
const (
	sourcePlaceholder = "__SOURCE__"
	outDirPlaceholder = "__OUTDIR__"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *runs < 1 {
		*runs = 1
	}

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	if *generateGolden != "" {
		if err := writeGolden(*generateGolden, tempDir); err != nil {
			log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
		}
		return
	}

	handleRunTestSuite(tempDir)
}

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func writeGolden(sourceFile, tempDir string) error {
	log.Printf("Generating golden file for %s...\n", sourceFile)

	fileHash, err := hashFile(sourceFile)
	if err != nil {
		return fmt.Errorf("could not hash source file %s: %w", sourceFile, err)
	}
	result := compile(sourceFile, tempDir, fileHash)
	if result.Compile.TimedOut {
		return fmt.Errorf("compiling %s timed out", sourceFile)
	}
	if result.Compile.UnstableOutput {
		return fmt.Errorf("output of %s differs between runs, refusing to record it", sourceFile)
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data to JSON: %w", err)
	}
	goldenFileName := getJSONPath(sourceFile)
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", *jsonDir, err)
		}
	}
	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write golden file %s: %w", goldenFileName, err)
	}

	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
	return nil
}

func handleRunTestSuite(tempDir string) {
	if _, err := exec.LookPath(*targetCompiler); err != nil {
		log.Fatalf("%s[ERROR]%s Target compiler '%s' not found: %v\n", cRed, cNone, *targetCompiler, err)
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan [2]string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				file, fileHash := task[0], task[1]
				if *updateGolden {
					if err := writeGolden(file, tempDir); err != nil {
						resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
					} else {
						resultsChan <- &FileTestResult{File: file, Status: "PASS", Message: "Golden file updated"}
					}
					continue
				}
				resultsChan <- testFile(file, tempDir, fileHash)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- [2]string{file, fileHash}
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)

	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func testFile(file, tempDir, fileHash string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden CompileResult
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	target := compile(file, tempDir, fileHash)
	return compareResults(file, &golden, target)
}

func compareResults(file string, golden, target *CompileResult) *FileTestResult {
	var diffs strings.Builder
	var failed bool

	ignoredSubstrings := []string{}
	if *ignoreLines != "" {
		ignoredSubstrings = strings.Split(*ignoreLines, ",")
	}

	if target.Compile.TimedOut {
		failed = true
		diffs.WriteString(fmt.Sprintf("Compilation timed out after %s\n", *timeout))
	}
	if target.Compile.UnstableOutput {
		failed = true
		diffs.WriteString("Output differs between runs of the same compilation\n")
	}
	if golden.Compile.ExitCode != target.Compile.ExitCode {
		failed = true
		diffs.WriteString(fmt.Sprintf("Exit Code mismatch:\n  - Golden: %d\n  - Target: %d\n", golden.Compile.ExitCode, target.Compile.ExitCode))
	}

	if g, t := filterOutput(golden.Compile.Stdout, ignoredSubstrings), filterOutput(target.Compile.Stdout, ignoredSubstrings); g != t {
		failed = true
		diffs.WriteString(fmt.Sprintf("STDOUT mismatch:\n%s", cmp.Diff(g, t)))
	}
	if g, t := filterOutput(golden.Compile.Stderr, ignoredSubstrings), filterOutput(target.Compile.Stderr, ignoredSubstrings); g != t {
		failed = true
		diffs.WriteString(fmt.Sprintf("STDERR mismatch:\n%s", cmp.Diff(g, t)))
	}

	names := make(map[string]bool)
	for name := range golden.Artifacts {
		names[name] = true
	}
	for name := range target.Artifacts {
		names[name] = true
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		g, inGolden := golden.Artifacts[name]
		t, inTarget := target.Artifacts[name]
		switch {
		case !inTarget:
			failed = true
			diffs.WriteString(fmt.Sprintf("Artifact '%s' was not written by the target.\n", name))
		case !inGolden:
			failed = true
			diffs.WriteString(fmt.Sprintf("Artifact '%s' is not in the golden file.\n", name))
		case g != t:
			failed = true
			diffs.WriteString(fmt.Sprintf("Artifact '%s' mismatch:\n%s", name, cmp.Diff(g, t)))
		}
	}

	if failed {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compiler output or artifacts differ from the golden file", Diff: diffs.String(), Golden: golden, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output and artifacts match", Golden: golden, Target: target}
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		execResult.TimedOut = true
		execResult.ExitCode = -1
	case errors.As(err, &exitErr):
		execResult.ExitCode = exitErr.ExitCode()
	case err != nil:
		execResult.ExitCode = -2
		execResult.Stderr += "\nExecution error: " + err.Error()
	}
	return execResult
}

// compile runs the target compiler *runs times into a fresh directory each
// time and keeps the fastest run. Paths are replaced by placeholders so the
// record does not depend on where the tests live.
func compile(sourceFile, tempDir, fileHash string) *CompileResult {
	var best *CompileResult
	for i := 0; i < *runs; i++ {
		outDir := filepath.Join(tempDir, fmt.Sprintf("%s-%d", fileHash, i))
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		args := append([]string{"-o", outDir}, strings.Fields(*targetArgs)...)
		args = append(args, sourceFile)
		run := executeCommand(ctx, *targetCompiler, args...)
		cancel()

		run.Stdout = normalize(run.Stdout, sourceFile, outDir)
		run.Stderr = normalize(run.Stderr, sourceFile, outDir)
		result := &CompileResult{Compile: run, Artifacts: readArtifacts(outDir)}
		if *verbose {
			log.Printf("[%s] run %d: exit %d in %s", filepath.Base(sourceFile), i, run.ExitCode, run.Duration)
		}

		if best == nil {
			best = result
		} else if !sameOutput(best, result) {
			best.Compile.UnstableOutput = true
			break
		} else if result.Compile.Duration < best.Compile.Duration {
			best.Compile.Duration = result.Compile.Duration
		}
		if run.TimedOut {
			break
		}
	}
	return best
}

func normalize(output, sourceFile, outDir string) string {
	output = strings.ReplaceAll(output, outDir, outDirPlaceholder)
	return strings.ReplaceAll(output, sourceFile, sourcePlaceholder)
}

func sameOutput(a, b *CompileResult) bool {
	return a.Compile.ExitCode == b.Compile.ExitCode &&
		a.Compile.Stdout == b.Compile.Stdout &&
		a.Compile.Stderr == b.Compile.Stderr &&
		cmp.Equal(a.Artifacts, b.Artifacts)
}

func readArtifacts(dir string) map[string]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	artifacts := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if data, err := os.ReadFile(filepath.Join(dir, e.Name())); err == nil {
			artifacts[e.Name()] = string(data)
		}
	}
	return artifacts
}

// filterOutput removes lines containing any of the given substrings
func filterOutput(output string, ignoredSubstrings []string) string {
	if len(ignoredSubstrings) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	filteredLines := make([]string, 0, len(lines))
	for _, line := range lines {
		ignore := false
		for _, sub := range ignoredSubstrings {
			if sub != "" && strings.Contains(line, sub) {
				ignore = true
				break
			}
		}
		if !ignore {
			filteredLines = append(filteredLines, line)
		}
	}
	return strings.Join(filteredLines, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var totalCompile, totalGolden time.Duration
	var compared int

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		if result.Target == nil || result.Golden == nil {
			continue
		}
		compared++
		totalCompile += result.Target.Compile.Duration
		totalGolden += result.Golden.Compile.Duration
		if *verbose {
			color := cNone
			if result.Target.Compile.Duration < result.Golden.Compile.Duration {
				color = cMagenta
			}
			fmt.Printf("  [compile: %s%s%s | golden: %s]\n", color, formatDuration(result.Target.Compile.Duration), cNone, formatDuration(result.Golden.Compile.Duration))
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))

	if compared > 0 && totalGolden > 0 {
		avg := totalCompile / time.Duration(compared)
		avgGolden := totalGolden / time.Duration(compared)
		factor := float64(avg) / float64(avgGolden)
		color, word := cGreen, "faster"
		if factor > 1 {
			color, word = cRed, "slower"
		} else if factor > 0 {
			factor = 1 / factor
		}
		fmt.Println("---")
		fmt.Printf("On average, %s%s%s compiled %s%.2fx%s %s than when the golden files were recorded.\n",
			cBold, filepath.Base(*targetCompiler), cNone, color, factor, cNone, word)
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
