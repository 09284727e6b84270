package epidata

import (
	"flag"
	"fmt"
	"strconv"
	"time"
)

// Option names for family-specific command line arguments.
const (
	OptStartDate     = "start_date"
	OptEndDate       = "end_date"
	OptImputeDates   = "impute_dates"
	OptMovingAverage = "moving_average"
	OptMakePlot      = "make_plot"
	OptSplitBerlin   = "split_berlin"
	OptRepDate       = "rep_date"
	OptSanitizeData  = "sanitize_data"
)

// Family describes one dataset family: the unit of selection for both
// download and cleanup, with the extra command line options it accepts.
type Family struct {
	Name        string
	Description string
	Options     []string
}

// familyRegistry is the closed set of dataset families. Resolution of
// an unknown family fails at startup instead of falling through.
var familyRegistry = map[string]Family{
	"divi": {"divi", "Downloads data from DIVI",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot}},
	"cases": {"cases", "Download case data from RKI",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot, OptSplitBerlin, OptRepDate}},
	"cases_est": {"cases_est", "Download case data from RKI and JHU and estimate recovered and deaths",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot, OptSplitBerlin, OptRepDate}},
	"population": {"population", "Download population data from official sources", nil},
	"commuter_official": {"commuter_official", "Download commuter data from official sources",
		[]string{OptMakePlot}},
	"vaccination": {"vaccination", "Download vaccination data",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot, OptSanitizeData}},
	"testing": {"testing", "Download testing data",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot}},
	"jh": {"jh", "Downloads data from Johns Hopkins University",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot}},
	"hospitalization": {"hospitalization", "Download hospitalization data",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot}},
	"sim": {"sim", "Download all data needed for simulations",
		[]string{OptStartDate, OptEndDate, OptImputeDates, OptMovingAverage, OptMakePlot, OptSplitBerlin, OptRepDate, OptSanitizeData}},
}

// FamilyFor resolves a dataset family by name.
func FamilyFor(name string) (Family, error) {
	family, ok := familyRegistry[name]
	if !ok {
		return Family{}, fmt.Errorf("unknown dataset family %q", name)
	}
	return family, nil
}

// DefaultStartDate is the first day with usable reporting data.
var DefaultStartDate = time.Date(2020, 4, 24, 0, 0, 0, 0, time.UTC)

// RunFlags holds the parsed command line arguments of one dataset run.
type RunFlags struct {
	ReadData   bool
	FileFormat string
	OutFolder  string
	NoRaw      bool

	StartDate     time.Time
	EndDate       time.Time
	ImputeDates   bool
	MovingAverage int
	MakePlot      bool
	SplitBerlin   bool
	RepDate       bool
	SanitizeData  int
}

// cliFormats lists the output formats selectable on the command line.
var cliFormats = []string{"json", "hdf5", "json_timeasstring"}

// ParseFlags builds the flag set for a dataset family and parses args.
// The common flags are always present; family-specific options are
// added per the registry.
func ParseFlags(familyName string, args []string, defaultOut string) (*RunFlags, error) {
	family, err := FamilyFor(familyName)
	if err != nil {
		return nil, err
	}

	flags := &RunFlags{
		FileFormat:   "json_timeasstring",
		StartDate:    DefaultStartDate,
		EndDate:      time.Now().UTC().Truncate(24 * time.Hour),
		SanitizeData: 1,
	}

	fs := flag.NewFlagSet(family.Name, flag.ContinueOnError)
	fs.BoolVar(&flags.ReadData, "r", false, "Reads the data from file instead of downloading it.")
	fs.BoolVar(&flags.ReadData, "read-data", false, "Reads the data from file instead of downloading it.")
	fs.StringVar(&flags.FileFormat, "f", flags.FileFormat, "Defines output format for data files.")
	fs.StringVar(&flags.FileFormat, "file-format", flags.FileFormat, "Defines output format for data files.")
	fs.StringVar(&flags.OutFolder, "o", defaultOut, "Defines folder for output.")
	fs.StringVar(&flags.OutFolder, "out-folder", defaultOut, "Defines folder for output.")
	fs.BoolVar(&flags.NoRaw, "n", false, "Defines if raw data will be stored for further use.")
	fs.BoolVar(&flags.NoRaw, "no-raw", false, "Defines if raw data will be stored for further use.")

	for _, opt := range family.Options {
		switch opt {
		case OptStartDate:
			fs.Func("start-date", "Defines start date for data download (YYYY-mm-dd).", dateFlag(&flags.StartDate))
			fs.Func("s", "Defines start date for data download (YYYY-mm-dd).", dateFlag(&flags.StartDate))
		case OptEndDate:
			fs.Func("end-date", "Defines date after which data download is stopped (YYYY-mm-dd).", dateFlag(&flags.EndDate))
			fs.Func("e", "Defines date after which data download is stopped (YYYY-mm-dd).", dateFlag(&flags.EndDate))
		case OptImputeDates:
			fs.BoolVar(&flags.ImputeDates, "impute-dates", false, "Output contains all dates instead of omitting dates without data.")
			fs.BoolVar(&flags.ImputeDates, "i", false, "Output contains all dates instead of omitting dates without data.")
		case OptMovingAverage:
			fs.IntVar(&flags.MovingAverage, "moving-average", 0, "Compute a moving average of N days over the time series.")
			fs.IntVar(&flags.MovingAverage, "m", 0, "Compute a moving average of N days over the time series.")
		case OptMakePlot:
			fs.BoolVar(&flags.MakePlot, "make-plot", false, "Plots the data.")
			fs.BoolVar(&flags.MakePlot, "p", false, "Plots the data.")
		case OptSplitBerlin:
			fs.BoolVar(&flags.SplitBerlin, "split-berlin", false, "Berlin data is split into different counties.")
			fs.BoolVar(&flags.SplitBerlin, "b", false, "Berlin data is split into different counties.")
		case OptRepDate:
			fs.BoolVar(&flags.RepDate, "rep-date", false, "Prefer the reporting date over dates of disease onset.")
		case OptSanitizeData:
			fs.IntVar(&flags.SanitizeData, "sanitize-data", 1, "Redistributes cases of every county based on region ratios or thresholds and population.")
			fs.IntVar(&flags.SanitizeData, "sd", 1, "Redistributes cases of every county based on region ratios or thresholds and population.")
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	valid := false
	for _, name := range cliFormats {
		if flags.FileFormat == name {
			valid = true
			break
		}
	}
	if !valid {
		return nil, &UnsupportedFormatError{Format: flags.FileFormat, Allowed: cliFormats}
	}
	return flags, nil
}

func dateFlag(dst *time.Time) func(string) error {
	return func(s string) error {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-mm-dd", s)
		}
		*dst = parsed
		return nil
	}
}

// AppendFilename creates consistent file names for all output: a moving
// average window appends _maN, imputed dates append _all_dates.
func AppendFilename(filename string, imputeDates bool, movingAverage int) string {
	if movingAverage > 0 {
		return filename + "_ma" + strconv.Itoa(movingAverage)
	}
	if imputeDates {
		return filename + "_all_dates"
	}
	return filename
}
