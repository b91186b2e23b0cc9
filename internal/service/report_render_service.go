package service

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"stock-watchdog/internal/domain"
)

// ReportRenderService produces the grouped HTML document sent to one
// recipient: per instrument a current trading data block, a prior-day
// performance block and a security cover block, breached instruments styled
// distinctly.
type ReportRenderService struct {
	reportTemplate *template.Template
}

func NewReportRenderService() *ReportRenderService {
	return &ReportRenderService{
		reportTemplate: template.Must(template.New("report").Parse(groupedReportTemplate)),
	}
}

type reportViewModel struct {
	GeneratedAt string
	Sections    []instrumentSectionViewModel
}

type instrumentSectionViewModel struct {
	HeaderText              string
	IsBreached              bool
	CurrentPriceText        string
	PreviousCloseText       string
	CurrentChangeText       string
	CurrentChangePositive   bool
	YesterdayCloseText      string
	YesterdayChangeText     string
	YesterdayChangePositive bool
	RequiredCoverText       string
	CurrentCoverText        string
}

func (service *ReportRenderService) RenderGroupedReport(snapshots []domain.PriceSnapshot, instruments []domain.MonitoredInstrument, currencySymbol string) (string, error) {
	instrumentsBySymbol := make(map[string]domain.MonitoredInstrument, len(instruments))
	for _, instrument := range instruments {
		instrumentsBySymbol[instrument.Symbol] = instrument
	}

	viewModel := reportViewModel{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05 MST"),
	}

	for _, snapshot := range snapshots {
		instrument, configured := instrumentsBySymbol[snapshot.Symbol]
		if !configured {
			continue
		}
		viewModel.Sections = append(viewModel.Sections, buildInstrumentSection(snapshot, instrument, currencySymbol))
	}

	var renderedDocument strings.Builder
	if renderError := service.reportTemplate.Execute(&renderedDocument, viewModel); renderError != nil {
		return "", renderError
	}
	return renderedDocument.String(), nil
}

func buildInstrumentSection(snapshot domain.PriceSnapshot, instrument domain.MonitoredInstrument, currencySymbol string) instrumentSectionViewModel {
	isBreached := EvaluateBreach(snapshot, instrument)

	headerText := fmt.Sprintf("Update for %s (%s)", instrument.CompanyName, snapshot.Symbol)
	if isBreached {
		headerText = fmt.Sprintf("ATTENTION: %s (%s)", instrument.CompanyName, snapshot.Symbol)
	}

	return instrumentSectionViewModel{
		HeaderText:              headerText,
		IsBreached:              isBreached,
		CurrentPriceText:        currencySymbol + formatGroupedAmount(snapshot.CurrentPrice),
		PreviousCloseText:       currencySymbol + formatGroupedAmount(snapshot.PreviousClose),
		CurrentChangeText:       formatSignedChange(currencySymbol, snapshot.Change, snapshot.ChangePercent),
		CurrentChangePositive:   snapshot.Change >= 0,
		YesterdayCloseText:      currencySymbol + formatGroupedAmount(snapshot.YesterdayClose),
		YesterdayChangeText:     formatSignedChange(currencySymbol, snapshot.YesterdayChange, snapshot.YesterdayChangePercent),
		YesterdayChangePositive: snapshot.YesterdayChange >= 0,
		RequiredCoverText:       fmt.Sprintf("%.2fx", instrument.SecurityCoverThreshold),
		CurrentCoverText:        fmt.Sprintf("%.2fx", snapshot.SecurityCover),
	}
}

func formatSignedChange(currencySymbol string, changeValue float64, changePercent float64) string {
	changeSign := "+"
	if changeValue < 0 {
		changeSign = "-"
	}
	return fmt.Sprintf("%s%s%s (%s%.2f%%)", changeSign, currencySymbol, formatGroupedAmount(math.Abs(changeValue)), changeSign, math.Abs(changePercent))
}

// formatGroupedAmount renders a two-decimal value with thousands separators,
// e.g. 1234567.8 -> "1,234,567.80".
func formatGroupedAmount(value float64) string {
	formattedValue := strconv.FormatFloat(value, 'f', 2, 64)

	signPrefix := ""
	if strings.HasPrefix(formattedValue, "-") {
		signPrefix = "-"
		formattedValue = formattedValue[1:]
	}

	integerPart, fractionPart, _ := strings.Cut(formattedValue, ".")
	var groupedInteger strings.Builder
	for digitIndex, digit := range integerPart {
		if digitIndex > 0 && (len(integerPart)-digitIndex)%3 == 0 {
			groupedInteger.WriteByte(',')
		}
		groupedInteger.WriteRune(digit)
	}

	return signPrefix + groupedInteger.String() + "." + fractionPart
}

const groupedReportTemplate = `<html>
    <head>
        <style>
            body { font-family: Arial, sans-serif; margin: 20px; }
            table, th, td { border: 1px solid #dddddd; }
            td, th { text-align: left; padding: 8px; }
            .header { background-color: #f2f2f2; font-weight: bold; }
        </style>
    </head>
    <body>
        <h2 style="color: #333;">&#128202; Stock Watchdog Report</h2>
        <p style="color: #666; font-size: 14px;">Generated on: {{.GeneratedAt}}</p>
{{range .Sections}}
        <h3 style="color: {{if .IsBreached}}red{{else}}blue{{end}};">{{.HeaderText}}</h3>
        <table style="border-collapse: collapse; width: 100%; font-family: Arial, sans-serif; margin-bottom: 20px;">
            <tr style="background-color: #f2f2f2;"><td colspan="2" style="border: 1px solid #dddddd; text-align: center; padding: 8px; font-weight: bold; font-size: 14px;">&#128202; Current Trading Data</td></tr>
            <tr><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold;">Current Market Price (CMP)</td><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold; font-size: 16px;">{{.CurrentPriceText}}</td></tr>
            <tr><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold;">Previous Close</td><td style="border: 1px solid #dddddd; text-align: left; padding: 8px;">{{.PreviousCloseText}}</td></tr>
            <tr><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold;">Current Day Change</td><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; color: {{if .CurrentChangePositive}}green{{else}}red{{end}}; font-weight: bold;">{{.CurrentChangeText}}</td></tr>
            <tr style="background-color: #f2f2f2;"><td colspan="2" style="border: 1px solid #dddddd; text-align: center; padding: 8px; font-weight: bold; font-size: 14px;">&#128200; Yesterday's Performance</td></tr>
            <tr><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold;">Yesterday's Close</td><td style="border: 1px solid #dddddd; text-align: left; padding: 8px;">{{.YesterdayCloseText}}</td></tr>
            <tr><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold;">Yesterday's Change</td><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; color: {{if .YesterdayChangePositive}}green{{else}}red{{end}}; font-weight: bold;">{{.YesterdayChangeText}}</td></tr>
            <tr style="background-color: #f2f2f2;"><td colspan="2" style="border: 1px solid #dddddd; text-align: center; padding: 8px; font-weight: bold; font-size: 14px;">&#128274; Security Cover Analysis</td></tr>
            <tr><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold;">Required Security Cover</td><td style="border: 1px solid #dddddd; text-align: left; padding: 8px;">{{.RequiredCoverText}}</td></tr>
            <tr><td style="border: 1px solid #dddddd; text-align: left; padding: 8px; font-weight: bold;">Current Security Cover</td><td style="border: 1px solid #dddddd; text-align: left; padding: 8px;{{if .IsBreached}} color: red; font-weight: bold;{{end}}">{{.CurrentCoverText}}</td></tr>
        </table>
{{end}}
        <hr style="margin-top: 20px;">
        <p style="font-size: 12px; color: #888;"><em>This is an automated report generated by Stock Watchdog</em></p>
    </body>
</html>
`
