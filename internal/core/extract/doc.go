// Package extract turns raw page text into structured textbook records:
// chapters, concepts, formulas and reactions. All functions are pure.
package extract
