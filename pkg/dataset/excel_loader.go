package dataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelLoader reads the fact table from an .xlsx workbook. The first row
// holds column names; columns are found by name, not position.
type ExcelLoader struct {
	Path  string
	Sheet string
}

func NewExcelLoader(path, sheet string) *ExcelLoader {
	return &ExcelLoader{Path: path, Sheet: sheet}
}

func (l *ExcelLoader) Load(ctx context.Context) (*Dataset, error) {
	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", l.Path, err)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return New(nil), nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}

	var present []string
	for _, c := range AllColumns() {
		if _, ok := header[c]; ok {
			present = append(present, c)
		}
	}

	records := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if n%1000 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, ok, err := parseRow(row, header)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		if ok {
			records = append(records, rec)
		}
	}

	return New(records, present...), nil
}

func parseRow(row []string, header map[string]int) (Record, bool, error) {
	cell := func(name string) string {
		i, ok := header[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	if strings.Join(row, "") == "" {
		return Record{}, false, nil
	}

	rec := Record{
		Usuario:         cell(ColUsuario),
		UsuarioNombre:   cell(ColUsuarioNombre),
		Sucursal:        normalizeBranch(cell(ColSucursal)),
		ActividadNombre: cell(ColActividad),
		CasoDeUso:       cell(ColCasoDeUso),
	}

	var err error
	if raw := cell(ColFecha); raw != "" {
		if rec.FechaHora, err = parseCellDate(raw); err != nil {
			return Record{}, false, err
		}
	}
	if rec.Calificacion, err = parseNumber(cell(ColCalificacion)); err != nil {
		return Record{}, false, fmt.Errorf("%s: %w", ColCalificacion, err)
	}
	if rec.PuntosTotales, err = parseNumber(cell(ColPuntos)); err != nil {
		return Record{}, false, fmt.Errorf("%s: %w", ColPuntos, err)
	}

	for i := 1; i <= ScoringPoints; i++ {
		info := cell(fmt.Sprintf("Info_Correcta%d", i))
		pts := cell(fmt.Sprintf("Puntos%d", i))
		if info == "" || pts == "" || info == NotApplicable || pts == NotApplicable {
			continue
		}
		rec.Detalle = append(rec.Detalle, ScoringPoint{Index: i, Info: info, Puntos: pts})
	}
	return rec, true, nil
}

// parseCellDate handles both formatted text and raw Excel serial numbers.
func parseCellDate(raw string) (time.Time, error) {
	if t, err := ParseFlexibleDate(raw); err == nil {
		return t, nil
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	for _, layout := range []string{"1/2/06 15:04", "01-02-06 15:04", "1/2/2006 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s %q", ColFecha, raw)
}

func parseNumber(raw string) (float64, error) {
	if raw == "" || raw == NotApplicable {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

// normalizeBranch turns numeric cells written as floats ("5.0") into "5".
func normalizeBranch(raw string) string {
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return raw
}
