// Package arbitration implements the two legal arbitration steps that cannot
// be expressed as a plain column formula.
//
// A Favorability check (Günstigerprüfung) evaluates several alternative tax
// schemes per tax unit and applies the one with the lowest net tax, together
// with that scheme's side effects such as zeroing the child benefit when the
// child allowance is used instead.
//
// A Precedence resolution (Vorrangprüfung) grants the first transfer in a
// fixed priority order that covers a household's unmet need and zeroes every
// other transfer, falling back to a baseline transfer when none covers it.
//
// Both produce ordinary rules through Rules, so they are resolved and executed
// by the engine like any other rule. Net taxes and residual needs are compared
// as exact decimals rounded to Places, never as raw floats.
package arbitration
