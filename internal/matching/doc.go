// Package matching turns noisy video labels into catalog identities and decides whether a search hit is the same song.
//
// # Title Normalization
//
// [Clean] strips decoration from a label: bracketed and parenthesized segments, featured artist clauses and
// redundant whitespace. [Parse] then splits the cleaned label with an ordered rule table, first match wins:
//
//  1. "Artist - Song"
//  2. "Artist: Song"
//  3. "Song by Artist"
//  4. "Artist | Song"
//  5. Artist "Song" (ASCII or curly quotes)
//
// A rule that produces an empty side is skipped. When nothing matches the whole label becomes the title.
//
// # Channel Names
//
// [CleanChannel] derives a fallback artist from the uploading channel by removing trailing decoration
// such as "VEVO", "Official" or "Music".
//
// # Scoring
//
// [Score] weights Levenshtein similarity of titles at 0.7 and artists at 0.3. [Accept] applies the threshold.
//
// # Resolution
//
// [Resolve] runs the ordered search attempts (parsed artist, cleaned channel, title only) against a
// [SearchFunc] and returns the first hit without scoring it.
package matching
