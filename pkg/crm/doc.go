// Package crm is a typed client for the CRM REST API: contacts,
// opportunities with their pipelines, and users.
//
// A Client authenticates with either a private API key or an OAuth access
// token. OAuth tokens are refreshed shortly before they expire, and once more
// when the API answers 401; concurrent calls share a single refresh.
// Transient failures (5xx, 429, network errors) are retried with exponential
// backoff.
//
//	cfg, err := crm.LoadConfig("crm.yaml")
//	if err != nil {
//		return err
//	}
//	client, err := crm.New(cfg, crm.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	page, err := client.Contacts.Search(ctx, crm.ContactSearchParams{Query: "ada"})
//
// Pipelines are cached per location for Config.PipelineCacheTTL; see
// OpportunitiesService.LoadPipelinesCache.
package crm
