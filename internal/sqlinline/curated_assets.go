package sqlinline

const QInsertCuratedAsset = `--sql a6d06964-52b3-467a-a08b-de6433ae0971
insert into curated_assets(
  keyword,
  source_page,
  download_url,
  license,
  license_url,
  commercial_use,
  attribution,
  no_sexual,
  no_brands,
  no_celeb,
  provider,
  width,
  height,
  created_at
) values (
  $1::text,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::bool,
  $7::text,
  $8::bool,
  $9::bool,
  $10::bool,
  $11::text,
  $12::int,
  $13::int,
  now()
)
on conflict (keyword, download_url) do nothing;
`

const QListCuratedByKeyword = `--sql 0c7fca1c-c590-4300-8d66-159d5c89e51d
select
  source_page,
  download_url,
  license,
  license_url,
  commercial_use,
  attribution,
  no_sexual,
  no_brands,
  no_celeb,
  provider,
  width,
  height,
  created_at
from curated_assets
where keyword = $1::text
order by position asc;
`
