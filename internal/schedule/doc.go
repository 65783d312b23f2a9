// Package schedule reconciles the station's weekly schedule.
//
// Two sources describe what airs when: episodes published in the CMS and
// events booked in RadioCult. They overlap, disagree on titles and sometimes
// double-book a slot. Merge keeps one entry per local (date, HH:MM) slot,
// preferring entries that link to a detail page and, between equals, the CMS.
// Builder fetches both sources concurrently for a Window and tolerates one of
// them failing.
package schedule
