// Package seed generates a demonstration planning model: a small paint
// shop with machines that change over between colors, a bucketized truck
// fleet and a handful of suppliers.
package seed

// Colors are the setups the paint machines change over between, in the
// order a cheap rotation visits them.
var Colors = []string{"white", "yellow", "red", "blue", "black"}

// Suppliers are the vendors the paint items are purchased from.
var Suppliers = []string{
	"Acme Pigments", "Northwind Coatings", "Blue Ridge Resins",
	"Cobalt Chemical", "Harbor Solvents", "Summit Binders",
}

// Destinations are the locations finished paint is shipped to.
var Destinations = []string{"north depot", "south depot", "harbor"}
