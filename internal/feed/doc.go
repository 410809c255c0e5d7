// Package feed connects the backend to the list views of the UI.
//
// A Loader performs the whole data flow for one view: Begin on the view's
// state.Machine, fetch through the api client, filter, annotate creators
// through the user cache via reconcile.Reconcile, then Resolve or Fail with
// the generation Begin returned. Late results of superseded fetches are
// dropped. Fetch errors end up in the view state; they are also returned
// so command-line callers can report them.
//
// Lessons, Flashcards, Users and Account add the mutations. Creates insert
// an optimistic placeholder with a correlation id, confirm it with the
// server's record and refetch; deletes and updates edit the list in place
// and refetch on failure. Forms are validated before anything is sent.
package feed
