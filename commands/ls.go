package commands

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	fcolor "github.com/fatih/color"
	getopt "github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
)

// Ls implements the UNIX ls command.
func Ls(p *Proc) int {
	defaultWidth := 80
	if cols, err := strconv.Atoi(p.Env.Getenv("COLUMNS")); err == nil && cols >= 0 {
		defaultWidth = cols
	}

	opts := getopt.New()
	listAll := opts.Bool('a', "don't ignore entries starting with .")
	longListing := opts.Bool('l', "use a long listing format")
	humanSize := opts.BoolLong("human-readable", 'h', "print human readable sizes")
	lineWidth := opts.IntLong("width", 'w', defaultWidth, "set the column width, 0 is infinite")
	helpOpt := opts.BoolLong("help", '?', "show help and exit")

	var color ColorPrinter
	color.Init(opts, p)

	if err := opts.Getopt(p.Argv(), nil); err != nil || *helpOpt {
		w := p.Stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Usage: ls [OPTION]... [FILE]...")
		fmt.Fprintln(w, "List information about the FILEs (the current directory by default).")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		opts.PrintOptions(w)
		return 1
	}

	// Initialize arguments
	directoriesToList := opts.Args()
	if len(directoriesToList) == 0 {
		directoriesToList = append(directoriesToList, ".")
	}
	sort.Strings(directoriesToList)

	showDirectoryNames := len(directoriesToList) > 1

	sizeFmt := func(bytes int64) string {
		return fmt.Sprintf("%d", bytes)
	}
	if *humanSize {
		sizeFmt = BytesToHuman
	}

	if *lineWidth == 0 {
		*lineWidth = math.MaxInt32
	}

	fsys := p.Fs()
	w := p.Stdout
	exitCode := 0

	for i, directory := range directoriesToList {
		stat, err := fsys.Stat(directory)
		if err != nil {
			fmt.Fprintf(p.Stderr(), "ls: cannot access %q: %v\n", directory, err)
			exitCode = 1
			continue
		}

		var allPaths []os.FileInfo
		if stat.IsDir() {
			allPaths, err = afero.ReadDir(fsys, directory)
			if err != nil {
				fmt.Fprintf(p.Stderr(), "ls: %s: %v\n", directory, err)
				exitCode = 1
				continue
			}
		} else {
			allPaths = []os.FileInfo{renamedFileInfo{stat, directory}}
		}

		// TODO: add . and .. if -a is specified

		var totalSize int64
		var paths []os.FileInfo
		for _, path := range allPaths {
			if !*listAll && strings.HasPrefix(path.Name(), ".") {
				continue
			}
			paths = append(paths, path)
			totalSize += path.Size()
		}

		sort.Slice(paths, func(i int, j int) bool {
			return paths[i].Name() < paths[j].Name()
		})

		if showDirectoryNames && stat.IsDir() {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", directory)
		}

		if *longListing {
			fmt.Fprintf(w, "total %s\n", sizeFmt(totalSize))
			tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
			currentYear := time.Now().Year()
			for _, f := range paths {
				hardLinks := 1
				if f.IsDir() {
					hardLinks = 2
				}

				// Include time if current year.
				modTime := f.ModTime().Format("Jan _2 2006")
				if f.ModTime().Year() >= currentYear {
					modTime = f.ModTime().Format("Jan _2 15:04")
				}

				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
					f.Mode().String(),
					hardLinks,
					sizeFmt(f.Size()),
					modTime,
					color.Sprintf(Dircolor(f), "%s", f.Name()))
			}
			tw.Flush()
		} else if len(paths) > 0 {
			colWidths := columnize(paths, *lineWidth)
			cols := len(colWidths)
			rows := len(paths) / cols
			if len(paths)%cols > 0 {
				rows++
			}

			for row := 0; row < rows; row++ {
				var line strings.Builder
				for col, width := range colWidths {
					index := (col * rows) + row
					if index >= len(paths) {
						break
					}
					// Add padding if there was a column before this.
					if col > 0 {
						line.WriteString("  ")
					}
					entry := paths[index]
					name := entry.Name()
					line.WriteString(color.Sprintf(Dircolor(entry), "%s", name))
					// Add padding for alignment, the last column isn't padded.
					if next := ((col + 1) * rows) + row; col+1 < cols && next < len(paths) && width > len(name) {
						line.WriteString(strings.Repeat(" ", width-len(name)))
					}
				}
				fmt.Fprintln(w, line.String())
			}
		}
	}

	return exitCode
}

type renamedFileInfo struct {
	os.FileInfo
	name string
}

func (r renamedFileInfo) Name() string {
	return r.name
}

type LsColorTest struct {
	color *fcolor.Color
	test  func(fileInfo os.FileInfo) bool
}

// Color listing comes from: https://askubuntu.com/a/884513
var dircolors = []LsColorTest{
	// Directories are bold blue.
	{color: ColorBoldBlue, test: os.FileInfo.IsDir},
	// Symlinks are bold cyan.
	{color: ColorBoldCyan, test: func(fi os.FileInfo) bool {
		return fi.Mode()&fs.ModeSymlink > 0
	}},
	// Yellow with black background pipe, block device, char device.
	{color: fcolor.New(fcolor.FgYellow, fcolor.BgBlack, fcolor.Bold), test: func(fi os.FileInfo) bool {
		return fi.Mode()&(fs.ModeSymlink|fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeCharDevice) > 0
	}},
	// Executables are bold green.
	{color: ColorBoldGreen, test: func(fi os.FileInfo) bool {
		return fi.Mode().Perm()&0111 > 0
	}},
	// Archives are bold red.
	{color: ColorBoldRed, test: func(fi os.FileInfo) bool {
		return map[string]bool{
			"tar": true,
			"tgz": true,
			"zip": true,
			"gz":  true,
			"bz2": true,
			"bz":  true,
			"tbz": true,
			"deb": true,
			"rpm": true,
			"jar": true,
			"war": true,
			"rar": true,
		}[strings.TrimPrefix(path.Ext(fi.Name()), ".")]
	}},
}

func Dircolor(fileInfo os.FileInfo) *fcolor.Color {
	for _, dc := range dircolors {
		if dc.test(fileInfo) {
			return dc.color
		}
	}

	// Anything else defaults to white.
	return fcolor.New(fcolor.FgHiWhite)
}

func columnize(paths []fs.FileInfo, screenWidth int) []int {
	numFiles := len(paths)
	if numFiles == 0 {
		return []int{0}
	}

	const colPadding = 2

	// Size of the display of the file name, actual length may vary if there are
	// escape sequences to format it.
	displayLengths := make([]int, len(paths))
	for i, p := range paths {
		displayLengths[i] = len(p.Name())
	}

	// Start with maximum number of columns and work down until all the data fits.
	// 3 is the minimum column width, 1 char filename + 2 padding.
	columns := screenWidth / (1 + colPadding)
	if columns > len(paths) {
		columns = len(paths)
	}
	var maximums []int // Holds maximum size of a name in the column.
	for ; columns >= 1; columns-- {
		maximums = make([]int, columns)
		total := (columns - 1) * colPadding
		rows := (numFiles + columns - 1) / columns
		for i, nameLen := range displayLengths {
			prevMax := maximums[i/rows]
			if nameLen > prevMax {
				maximums[i/rows] = nameLen
				total = total - prevMax + nameLen
				if total > screenWidth {
					break
				}
			}
		}

		if total <= screenWidth {
			return maximums
		}
	}

	return maximums
}

var _ ProcFunc = Ls
