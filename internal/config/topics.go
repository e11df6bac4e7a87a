package config

const (
	// TopicIndexRequest is the NSQ topic for document indexing requests.
	TopicIndexRequest = "index.request"

	// TopicIndexAdmin is the NSQ topic for document delete and metadata
	// update requests.
	TopicIndexAdmin = "index.admin"

	// ChannelIndexer is the consumer channel name. A single channel gives
	// one in-flight message per consumer deployment.
	ChannelIndexer = "indexer"
)
