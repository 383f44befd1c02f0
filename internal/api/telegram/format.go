package telegram

import (
	"fmt"
	"strings"

	app "camcalib/internal/application"
	"camcalib/internal/domain/entity"
)

// FormatResult текст с параметрами камеры
func FormatResult(r *entity.CalibrationResult) string {
	var sb strings.Builder

	k := r.CameraMatrix()
	fmt.Fprintf(&sb, "📐 Ошибка калибровки (RMS): %.4f\n\n", r.Ret())
	sb.WriteString("Матрица камеры:\n")
	for _, row := range k {
		fmt.Fprintf(&sb, "  %10.3f %10.3f %10.3f\n", row[0], row[1], row[2])
	}

	sb.WriteString("\nКоэффициенты дисторсии:\n ")
	for _, d := range r.DistCoeffs() {
		fmt.Fprintf(&sb, " %.5f", d)
	}
	sb.WriteString("\n")

	if r.Views() > 0 && len(r.PerViewErrors()) > 0 {
		fmt.Fprintf(&sb, "\nСнимков: %d\nСуммарная ошибка: %.5f\nСредняя ошибка: %.5f",
			r.Views(), r.TotalError(), r.MeanError())
	}

	return sb.String()
}

// FormatReport результат калибровки вместе со статистикой по снимкам
func FormatReport(report *app.CalibrationReport) string {
	stats := report.Correspondences.Stats
	header := fmt.Sprintf("✅ Готово! Доска найдена на %d из %d снимков.\n", stats.Detected, stats.Input)
	if stats.RefineFallbacks > 0 {
		header += fmt.Sprintf("⚠️ Без субпиксельного уточнения: %d.\n", stats.RefineFallbacks)
	}
	return header + "\n" + FormatResult(report.Result)
}
