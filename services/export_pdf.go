package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// GeneratePDF creates a PDF listing of the BOQ using maroto/v2.
func GeneratePDF(data ExportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addHeader(m, data)
	addTableHeader(m)
	for _, r := range data.Rows {
		addTableRow(m, r)
	}
	addSummary(m, data)
	addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addHeader(m core.Maroto, data ExportData) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(data.Title, props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	grey := &props.Color{Red: 80, Green: 80, Blue: 80}
	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("Config: %s", data.Config), props.Text{Size: 9, Align: align.Left, Color: grey}),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("Date: %s", data.CreatedDate), props.Text{Size: 9, Align: align.Right, Color: grey}),
			),
		),
	)
	m.AddRows(row.New(4))
}

func addTableHeader(m core.Maroto) {
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerTextLeft := headerText
	headerTextLeft.Align = align.Left

	headerCell := props.Cell{BackgroundColor: &props.Color{Red: 33, Green: 37, Blue: 41}}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(text.New("#", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Product Code", headerTextLeft)).WithStyle(&headerCell),
			col.New(4).Add(text.New("Description", headerTextLeft)).WithStyle(&headerCell),
			col.New(1).Add(text.New("Qty", headerText)).WithStyle(&headerCell),
			col.New(1).Add(text.New("Unit", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Category", headerTextLeft)).WithStyle(&headerCell),
			col.New(1).Add(text.New("Vendor", headerText)).WithStyle(&headerCell),
		),
	)
}

// addTableRow adds one BOQ line. Overridden lines get a tinted background.
func addTableRow(m core.Maroto, r ExportRow) {
	var cellStyle *props.Cell
	textStyle := fontstyle.Normal
	if r.Override {
		cellStyle = &props.Cell{BackgroundColor: &props.Color{Red: 254, Green: 243, Blue: 199}}
		textStyle = fontstyle.Italic
	}

	baseText := props.Text{Size: 7, Style: textStyle, Align: align.Center}
	leftText := baseText
	leftText.Align = align.Left
	rightText := baseText
	rightText.Align = align.Right

	cols := []core.Col{
		col.New(1).Add(text.New(r.Index, baseText)),
		col.New(2).Add(text.New(r.ProductCode, leftText)),
		col.New(4).Add(text.New(r.Description, leftText)),
		col.New(1).Add(text.New(FormatQuantity(r.Qty, ""), rightText)),
		col.New(1).Add(text.New(r.Unit, baseText)),
		col.New(2).Add(text.New(r.Category, leftText)),
		col.New(1).Add(text.New(r.Vendor, baseText)),
	}
	if cellStyle != nil {
		for i := range cols {
			cols[i] = cols[i].WithStyle(cellStyle)
		}
	}
	m.AddRows(row.New(7).Add(cols...))
}

func addSummary(m core.Maroto, data ExportData) {
	m.AddRows(row.New(6))

	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	labelStyle := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}

	for _, s := range data.Sections {
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(text.New(SectionLabel(s.Section), labelStyle)).WithStyle(summaryCell),
				col.New(4).Add(text.New(fmt.Sprintf("%d lines", s.Lines), labelStyle)).WithStyle(summaryCell),
			),
		)
	}

	if len(data.Warnings) == 0 {
		return
	}
	m.AddRows(row.New(4))
	warnText := props.Text{Size: 8, Align: align.Left, Color: &props.Color{Red: 180, Green: 83, Blue: 9}}
	for _, w := range data.Warnings {
		m.AddRows(
			row.New(6).Add(
				col.New(12).Add(text.New(fmt.Sprintf("[%s] %s", w.Code, w.Message), warnText)),
			),
		)
	}
}

func addFooter(m core.Maroto, data ExportData) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("Generated on %s", data.CreatedDate),
					props.Text{
						Size:  7,
						Align: align.Left,
						Color: &props.Color{Red: 140, Green: 140, Blue: 140},
					},
				),
			),
		),
	)
}
