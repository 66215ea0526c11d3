package schemaorg

// testVocabulary is a small excerpt of the schema.org release file.
const testVocabulary = `{
  "@context": {
    "rdf": "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
    "rdfs": "http://www.w3.org/2000/01/rdf-schema#",
    "schema": "https://schema.org/"
  },
  "@graph": [
    {"@id": "schema:Thing", "@type": "rdfs:Class", "rdfs:label": "Thing"},
    {"@id": "schema:CreativeWork", "@type": "rdfs:Class", "rdfs:subClassOf": {"@id": "schema:Thing"}},
    {"@id": "schema:Article", "@type": "rdfs:Class", "rdfs:subClassOf": {"@id": "schema:CreativeWork"}},
    {"@id": "schema:Product", "@type": "rdfs:Class", "rdfs:subClassOf": {"@id": "schema:Thing"}},
    {"@id": "schema:Organization", "@type": "rdfs:Class", "rdfs:subClassOf": {"@id": "schema:Thing"}},
    {"@id": "schema:Place", "@type": "rdfs:Class", "rdfs:subClassOf": {"@id": "schema:Thing"}},
    {"@id": "schema:LocalBusiness", "@type": "rdfs:Class", "rdfs:subClassOf": [{"@id": "schema:Organization"}, {"@id": "schema:Place"}]},
    {"@id": "schema:Text", "@type": ["schema:DataType", "rdfs:Class"]},
    {"@id": "schema:Monday", "@type": "schema:DayOfWeek"},
    {"@id": "schema:name", "@type": "rdf:Property", "schema:domainIncludes": {"@id": "schema:Thing"}},
    {"@id": "schema:headline", "@type": "rdf:Property", "schema:domainIncludes": {"@id": "schema:CreativeWork"}},
    {"@id": "schema:offers", "@type": "rdf:Property", "schema:domainIncludes": [{"@id": "schema:Product"}, {"@id": "schema:CreativeWork"}]},
    {"@id": "schema:geo", "@type": "rdf:Property", "schema:domainIncludes": {"@id": "schema:Place"}},
    {"@id": "schema:founder", "@type": "rdf:Property", "schema:domainIncludes": {"@id": "schema:Organization"}}
  ]
}`
