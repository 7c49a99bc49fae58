// Package charts renders analysis results as PNG or SVG images: a line,
// bar and scatter view of the selected series and a correlation heatmap.
package charts
